package agent

import "github.com/hupe1980/mcpagents/core"

// InstructionProvider produces instruction text when a fresh conversation is
// seeded. It receives the run about to start.
type InstructionProvider interface {
	Instruction(*core.RunContext) (string, error)
}

// InstructionFunc adapts a function to InstructionProvider.
type InstructionFunc func(*core.RunContext) (string, error)

// Instruction implements InstructionProvider.
func (f InstructionFunc) Instruction(rc *core.RunContext) (string, error) { return f(rc) }

// Instruction is the text placed after the system prompt of every new
// conversation: either fixed or computed per run. The zero value is an
// empty static instruction.
type Instruction struct {
	text     string
	provider InstructionProvider
}

func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

func NewInstructionFromProvider(p InstructionProvider) Instruction { return Instruction{provider: p} }

func NewInstructionFromFunc(f func(*core.RunContext) (string, error)) Instruction {
	return NewInstructionFromProvider(InstructionFunc(f))
}

// IsStatic reports whether no provider is involved.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Text is the fixed text; dynamic instructions report "".
func (i Instruction) Text() string { return i.text }

// Resolve yields the text for rc.
func (i Instruction) Resolve(rc *core.RunContext) (string, error) {
	if i.IsStatic() {
		return i.text, nil
	}
	return i.provider.Instruction(rc)
}
