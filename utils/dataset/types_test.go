package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExampleHasInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"text input", "一段文字", true},
		{"none marker", "None", false},
		{"empty", "", false},
		{"lowercase none is text", "none", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Example{Instruction: "x", Input: tt.input}.HasInput())
		})
	}
}

func TestSplitByInput(t *testing.T) {
	examples := []Example{
		{Instruction: "a", Input: "x"},
		{Instruction: "b", Input: NoInput},
		{Instruction: "c", Input: "y"},
	}
	with, without := SplitByInput(examples)
	assert.Equal(t, []string{"a", "c"}, Instructions(with))
	assert.Equal(t, []string{"b"}, Instructions(without))
}

func TestDatasetValidate(t *testing.T) {
	ok := Dataset{{Conversation: Dialogue{{Instruction: "q", Output: "a"}}}}
	assert.NoError(t, ok.Validate())

	assert.Error(t, Dataset{{}}.Validate())
	assert.Error(t, Dataset{{Conversation: Dialogue{{Instruction: "q"}}}}.Validate())
}

func TestFirstTurns(t *testing.T) {
	ds := Dataset{
		{Conversation: Dialogue{{Instruction: "first", Output: "a"}, {Instruction: "second", Output: "b"}}},
		{},
	}
	got := ds.FirstTurns()
	assert.Equal(t, []Example{{Instruction: "first", Input: NoInput}}, got)
}

func TestDialogueClone(t *testing.T) {
	d := Dialogue{{Instruction: "q", Output: "a"}}
	c := d.Clone()
	c[0].Output = "changed"
	assert.Equal(t, "a", d[0].Output)
}
