package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/snow-ghost/codeassist/core"
	"github.com/snow-ghost/codeassist/pkg/llm"
)

// ToolTextGeneration names the text generation tool in reasoning and tool usages.
const ToolTextGeneration = "text_generation"

// Default trigger terms.
var (
	CodeGeneratorTerms = []string{"build", "generate", "create", "code", "script", "function", "write", "api", "class"}
	BugFixerTerms      = []string{"fix", "bug", "error", "issue", "debug", "troubleshoot", "broken"}
	CodeExplainerTerms = []string{"explain", "understand", "describe", "what does", "meaning of", "comment this"}
)

// GenerationAgent answers a prompt with one call to a text generator.
type GenerationAgent struct {
	BaseAgent
	generator   core.TextGenerator
	buildPrompt func(userPrompt, history string) string
	failure     string
	rationale   string
}

// NewCodeGenerator returns the code generation agent.
func NewCodeGenerator(gen core.TextGenerator, opts ...Option) *GenerationAgent {
	return &GenerationAgent{
		BaseAgent:   newBaseAgent("CodeGenerator", "Generates code snippets based on the user's prompt.", CodeGeneratorTerms, opts...),
		generator:   gen,
		buildPrompt: llm.CodeGenerationPrompt,
		failure:     "Error generating code",
		rationale:   "The prompt asks for new code.",
	}
}

// NewBugFixer returns the debugging agent.
func NewBugFixer(gen core.TextGenerator, opts ...Option) *GenerationAgent {
	return &GenerationAgent{
		BaseAgent:   newBaseAgent("BugFixer", "Detects and fixes bugs in broken or error-prone code.", BugFixerTerms, opts...),
		generator:   gen,
		buildPrompt: llm.BugFixPrompt,
		failure:     "Error debugging code",
		rationale:   "The prompt describes broken code that needs fixing.",
	}
}

// NewCodeExplainer returns the explanation agent.
func NewCodeExplainer(gen core.TextGenerator, opts ...Option) *GenerationAgent {
	return &GenerationAgent{
		BaseAgent:   newBaseAgent("CodeExplainer", "Explains code behavior, logic, and purpose in a clear, human-readable format.", CodeExplainerTerms, opts...),
		generator:   gen,
		buildPrompt: llm.ExplainPrompt,
		failure:     "Error while explaining code",
		rationale:   "The prompt asks what a piece of code does.",
	}
}

// Invoke calls the generator. Generation failures become user-facing
// outcomes; only a cancelled or expired ctx is returned as an error.
func (a *GenerationAgent) Invoke(ctx context.Context, req core.Request) (core.Outcome, error) {
	if a.generator == nil {
		return core.Outcome{}, errors.New("no text generator configured")
	}

	prompt := a.buildPrompt(req.Prompt, req.History)
	text, err := a.generator.Complete(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return core.Outcome{}, ctxErr
		}
		a.logger.Warn("text generation failed", "error", err, "quota", core.IsQuotaError(err))

		response := fmt.Sprintf("%s: %v", a.failure, err)
		if core.IsQuotaError(err) {
			response = core.QuotaExceededMessage
		}
		return core.Outcome{
			Response: response,
			Reasoning: &core.Reasoning{
				Rationale:   a.rationale,
				ToolInvoked: ToolTextGeneration,
				Observation: err.Error(),
			},
		}, nil
	}

	text = strings.TrimSpace(text)
	return core.Outcome{
		Response: text,
		Reasoning: &core.Reasoning{
			Rationale:   a.rationale,
			ToolInvoked: ToolTextGeneration,
			Observation: fmt.Sprintf("generated %d characters", len(text)),
		},
		ToolUsages: []core.ToolUsage{
			{ToolName: ToolTextGeneration, Input: req.Prompt, Output: text},
		},
	}, nil
}
