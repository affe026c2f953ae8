// Package evaluation holds the scoring model used by the evaluator agent:
// a criteria table with points per criterion, derived numeric and letter
// grades, and the prompt that asks an LLM to grade a proposed solution.
package evaluation
