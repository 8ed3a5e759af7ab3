package progress

import (
	"errors"
	"testing"
)

func sampleQuestions() []Question {
	return []Question{
		{ID: 1, Text: "Describe the shoot", Kind: KindOpen, Required: true, Points: 5, Order: 1},
		{ID: 2, Text: "Pick one", Kind: KindSingleChoice, Options: []string{"A", "B", "C"}, Required: true, Points: 3, Order: 2},
		{ID: 3, Text: "Pick many", Kind: KindMultipleChoice, Options: []string{"X", "Y", "Z"}, Required: false, Points: 2, Order: 3},
	}
}

func TestNewCollectorOneAnswerPerQuestion(t *testing.T) {
	qs := sampleQuestions()
	c := NewCollector(qs, nil, DefaultAttachmentPolicy())

	answers := c.Answers()
	if len(answers) != len(qs) {
		t.Fatalf("answers length = %d, want %d", len(answers), len(qs))
	}
	for i, a := range answers {
		if a.QuestionID != qs[i].ID {
			t.Errorf("answer %d bound to question %d, want %d", i, a.QuestionID, qs[i].ID)
		}
		if a.Selected == nil {
			t.Errorf("answer %d has nil selection, want empty set", i)
		}
	}
}

func TestNewCollectorResumesExistingAnswers(t *testing.T) {
	qs := sampleQuestions()
	existing := []Answer{
		{QuestionID: 2, Selected: []int{1}},
		{QuestionID: 1, Text: "golden hour"},
	}
	c := NewCollector(qs, existing, DefaultAttachmentPolicy())

	a, _ := c.Answer(1)
	if a.Text != "golden hour" {
		t.Errorf("open answer = %q, want pre-filled text", a.Text)
	}
	a, _ = c.Answer(2)
	if len(a.Selected) != 1 || a.Selected[0] != 1 {
		t.Errorf("choice answer = %v, want [1]", a.Selected)
	}
	// One entry per question even though only two were supplied.
	if got := len(c.Answers()); got != 3 {
		t.Errorf("answers length = %d, want 3", got)
	}
}

func TestToggleSingleChoiceAlwaysSingleton(t *testing.T) {
	c := NewCollector(sampleQuestions(), nil, DefaultAttachmentPolicy())

	for _, idx := range []int{0, 2, 1, 1} {
		if err := c.ToggleOption(2, idx, false); err != nil {
			t.Fatalf("ToggleOption: %v", err)
		}
		a, _ := c.Answer(2)
		if len(a.Selected) != 1 {
			t.Fatalf("selection size = %d after toggling %d, want exactly 1", len(a.Selected), idx)
		}
		if a.Selected[0] != idx {
			t.Fatalf("selection = %v, want [%d]", a.Selected, idx)
		}
	}
}

func TestToggleMultipleChoiceDoubleToggleRestores(t *testing.T) {
	c := NewCollector(sampleQuestions(), nil, DefaultAttachmentPolicy())

	c.ToggleOption(3, 0, true)
	c.ToggleOption(3, 2, true)
	before, _ := c.Answer(3)

	c.ToggleOption(3, 1, true)
	c.ToggleOption(3, 1, true)

	after, _ := c.Answer(3)
	if !EqualOptionSets(before.Selected, after.Selected) {
		t.Errorf("double toggle changed selection: %v -> %v", before.Selected, after.Selected)
	}
}

func TestToggleOptionOutOfRange(t *testing.T) {
	c := NewCollector(sampleQuestions(), nil, DefaultAttachmentPolicy())
	if err := c.ToggleOption(2, 5, false); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("err = %v, want ErrUnknownOption", err)
	}
	if err := c.ToggleOption(99, 0, false); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("err = %v, want ErrUnknownQuestion", err)
	}
}

func TestAllRequiredAnswered(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *Collector)
		want  bool
	}{
		{"nothing answered", func(c *Collector) {}, false},
		{"only optional answered", func(c *Collector) {
			c.ToggleOption(3, 0, true)
		}, false},
		{"open answer is whitespace", func(c *Collector) {
			c.SetText(1, "   ")
			c.ToggleOption(2, 0, false)
		}, false},
		{"one required missing", func(c *Collector) {
			c.SetText(1, "use window light")
		}, false},
		{"all required answered", func(c *Collector) {
			c.SetText(1, "use window light")
			c.ToggleOption(2, 1, false)
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector(sampleQuestions(), nil, DefaultAttachmentPolicy())
			tt.setup(c)
			if got := c.AllRequiredAnswered(); got != tt.want {
				t.Errorf("AllRequiredAnswered() = %v, want %v (missing %v)", got, tt.want, c.MissingRequired())
			}
		})
	}
}

func TestAttachFilesPolicy(t *testing.T) {
	c := NewCollector(sampleQuestions(), nil, DefaultAttachmentPolicy())

	files := []FileRef{
		{Name: "big.pdf", Size: 6 * 1024 * 1024, ContentType: "application/pdf"},
		{Name: "anim.gif", Size: 2 * 1024 * 1024, ContentType: "image/gif"},
		{Name: "notes.pdf", Size: 2 * 1024 * 1024, ContentType: "application/pdf"},
	}
	accepted, rejected, err := c.AttachFiles(1, files)
	if err != nil {
		t.Fatalf("AttachFiles: %v", err)
	}
	if len(accepted) != 1 || accepted[0].Name != "notes.pdf" {
		t.Fatalf("accepted = %v, want only notes.pdf", accepted)
	}
	if len(rejected) != 2 {
		t.Fatalf("rejected = %d files, want 2", len(rejected))
	}
	if !errors.Is(rejected[0].Reason, ErrFileTooLarge) {
		t.Errorf("big.pdf reason = %v, want ErrFileTooLarge", rejected[0].Reason)
	}
	if !errors.Is(rejected[1].Reason, ErrFileType) {
		t.Errorf("anim.gif reason = %v, want ErrFileType", rejected[1].Reason)
	}

	a, _ := c.Answer(1)
	if len(a.Files) != 1 || a.Files[0].Name != "notes.pdf" {
		t.Errorf("attachment list = %v, want only the accepted file", a.Files)
	}
}

func TestAssignmentPolicyAllowsPlainText(t *testing.T) {
	txt := FileRef{Name: "essay.txt", Size: 1024, ContentType: "text/plain"}
	if err := AssignmentAttachmentPolicy().Check(txt); err != nil {
		t.Errorf("assignment policy rejected text/plain: %v", err)
	}
	if err := DefaultAttachmentPolicy().Check(txt); !errors.Is(err, ErrFileType) {
		t.Errorf("answer policy accepted text/plain, want ErrFileType (got %v)", err)
	}
}

func TestRemoveFileByPosition(t *testing.T) {
	c := NewCollector(sampleQuestions(), nil, DefaultAttachmentPolicy())
	c.AttachFiles(1, []FileRef{
		{Name: "a.png", Size: 10, ContentType: "image/png"},
		{Name: "b.png", Size: 10, ContentType: "image/png"},
	})

	if err := c.RemoveFile(1, 0); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	a, _ := c.Answer(1)
	if len(a.Files) != 1 || a.Files[0].Name != "b.png" {
		t.Errorf("files = %v, want [b.png]", a.Files)
	}
	if err := c.RemoveFile(1, 5); err == nil {
		t.Error("removing out-of-range index succeeded, want error")
	}
}
