package eval

import (
	"fmt"

	"github.com/corvelia/finrag/internal/core/domain"
)

const (
	KeyRetrievalRelevance = "retrieval_relevance_binary"
	KeyAnswerRelevance    = "answer_relevance_binary"
	KeyAnswerFaithfulness = "answer_faithfulness_binary"
	KeyAnswerCorrectness  = "answer_correctness_binary"
)

// AllJudges returns the four binary judges in their reporting order.
func AllJudges() []JudgeSpec {
	return []JudgeSpec{
		RetrievalRelevanceJudge(),
		AnswerRelevanceJudge(),
		AnswerFaithfulnessJudge(),
		AnswerCorrectnessJudge(),
	}
}

// RetrievalRelevanceJudge decides whether the retrieved documents match the
// information need of the query.
func RetrievalRelevanceJudge() JudgeSpec {
	return JudgeSpec{
		Key:        KeyRetrievalRelevance,
		AttachDocs: true,
		Build: func(example domain.EvaluationExample, docs []compactDoc) string {
			return fmt.Sprintf(retrievalRelevanceTemplate, example.Question, renderDocs(docs))
		},
	}
}

// AnswerRelevanceJudge decides whether the generated answer addresses the
// question that was asked.
func AnswerRelevanceJudge() JudgeSpec {
	return JudgeSpec{
		Key: KeyAnswerRelevance,
		Build: func(example domain.EvaluationExample, _ []compactDoc) string {
			return fmt.Sprintf(answerRelevanceTemplate, example.Question, example.Answer)
		},
	}
}

// AnswerFaithfulnessJudge decides whether the answer is supported by the
// retrieved context (hallucination check).
func AnswerFaithfulnessJudge() JudgeSpec {
	return JudgeSpec{
		Key: KeyAnswerFaithfulness,
		Build: func(example domain.EvaluationExample, docs []compactDoc) string {
			return fmt.Sprintf(faithfulnessTemplate, renderDocs(docs), example.Question, example.Answer)
		},
	}
}

// AnswerCorrectnessJudge decides whether the answer is factually correct
// relative to the reference answer.
func AnswerCorrectnessJudge() JudgeSpec {
	return JudgeSpec{
		Key: KeyAnswerCorrectness,
		Build: func(example domain.EvaluationExample, _ []compactDoc) string {
			return fmt.Sprintf(correctnessTemplate, example.Question, example.ReferenceAnswer, example.Answer)
		},
	}
}

const retrievalRelevanceTemplate = `You are an expert evaluator assessing whether retrieved documents are relevant to a given user query.

Your task is to determine whether the retrieved documents match the information need expressed in the query.

<Rubric>
Relevant retrieval:
- Documents directly relate to the subject of the query
- Documents contain information that could help answer the query
- Documents address the specific entities, concepts, or constraints in the query
- Documents are topically aligned with the query's intent

Irrelevant retrieval:
- Documents discuss unrelated topics
- Documents only partially match surface keywords but miss the query's intent
- Documents contain general background information without addressing the query
- Documents would not meaningfully help answer the query
</Rubric>

<Instructions>
- Carefully read the query to understand the information being requested
- Review the retrieved documents
- Determine whether the documents match the query's topic and intent
- Assess whether the documents would help answer the query if used in generation
- Judge overall retrieval relevance
</Instructions>

<Reminder>
Focus on topical and semantic relevance to the query.
Do NOT judge answer correctness.
Do NOT evaluate writing quality.
Only assess whether the retrieved documents match the query's information need.
</Reminder>

Now evaluate the following:

<Query>
%s
</Query>

<RetrievedDocuments>
%s
</RetrievedDocuments>`

const answerRelevanceTemplate = `You are an expert evaluator assessing whether outputs are relevant to the given input. Your task is to determine whether EACH statement appropriately addresses what was asked.

<Rubric>
A relevant output:
- Directly answers the question or addresses the request
- Provides information specifically asked for
- Stays on topic with the input's intent
- Contributes meaningfully to fulfilling the request

An irrelevant output:
- Discusses topics not requested or implied by the input
- Provides unnecessary tangents or digressions
- Includes information that doesn't answer the question
- Addresses a different question than what was asked
</Rubric>

<Instructions>
For each output:
- Read the original input carefully to understand what was asked
- Examine the output and identify its core claim or purpose
- Determine if the output directly addresses the input's request
- Assess whether the information helps fulfill what was asked
- Determine the answer relevancy of output and output a score
</Instructions>

<Reminder>
Focus on whether each statement helps answer the specific input question, not whether the statement is true or well-written. A statement can be factually correct but still irrelevant if it doesn't address what was asked.
</Reminder>

Now, grade the following example according to the above instructions:

<example>
<input>
%s
</input>

<output>
%s
</output>
</example>`

const faithfulnessTemplate = `You are an expert data labeler evaluating model outputs for hallucinations. Your task is to assign a score based on the following rubric:

<Rubric>
A response without hallucinations:
- Contains only verifiable facts that are directly supported by the input context
- Makes no unsupported claims or assumptions
- Does not add speculative or imagined details
- Maintains perfect accuracy in dates, numbers, and specific details
- Appropriately indicates uncertainty when information is incomplete
</Rubric>

<Instructions>
- Read the input context thoroughly
- Identify all claims made in the output
- Cross-reference each claim with the input context
- Note any unsupported or contradictory information
- Consider the severity and quantity of hallucinations
</Instructions>

<Reminder>
Focus solely on factual accuracy and support from the input context. Do not consider style, grammar, or presentation in scoring. A shorter, factual response should score higher than a longer response with unsupported claims.
</Reminder>

Use the following context to help you evaluate for hallucinations in the output:

<context>
%s
</context>

<input>
%s
</input>

<output>
%s
</output>`

const correctnessTemplate = `You are an expert evaluator assessing the correctness of a model-generated response compared to a sample response (ground truth).

Your task is to determine whether the model response is factually correct relative to the sample response.

<Rubric>
A correct response:
- Accurately answers the user's query
- Matches the key facts and conclusions in the sample response
- Contains no contradictions with the sample response
- Does not introduce incorrect factual information
- Provides the essential information required by the query

An incorrect response:
- Contradicts the sample response on key facts
- Contains major factual errors
- Omits essential required information
- Answers a different question
- Introduces false or misleading claims
</Rubric>

<Instructions>
- Read the user query carefully
- Read the sample response to understand the ground-truth answer
- Identify the key factual claims in the model response
- Compare each claim against the sample response
- Determine whether the model response is fully correct or not
</Instructions>

<Reminder>
Focus strictly on factual correctness relative to the sample response.
Do not evaluate writing style or fluency.
Minor wording differences are acceptable if the factual meaning is preserved.
Any major contradiction or key factual error should result in "incorrect".
If essential information is missing, the response should be marked "incorrect".
</Reminder>

Now evaluate the following:

<query>
%s
</query>

<sample_response>
%s
</sample_response>

<model_response>
%s
</model_response>`
