package progress

import (
	"fmt"
	"strings"
)

// MaxAttachmentSize is the per-file ceiling for answer and assignment
// attachments.
const MaxAttachmentSize = 5 * 1024 * 1024

const mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// AttachmentPolicy is the allow-list applied to every attached file.
type AttachmentPolicy struct {
	MaxSize      int64
	AllowedTypes []string
}

// DefaultAttachmentPolicy covers question answers: jpeg, png, pdf, docx.
func DefaultAttachmentPolicy() AttachmentPolicy {
	return AttachmentPolicy{
		MaxSize:      MaxAttachmentSize,
		AllowedTypes: []string{"image/jpeg", "image/png", "application/pdf", mimeDocx},
	}
}

// AssignmentAttachmentPolicy additionally accepts plain text, which is
// allowed for assignment submissions only.
func AssignmentAttachmentPolicy() AttachmentPolicy {
	p := DefaultAttachmentPolicy()
	p.AllowedTypes = append(p.AllowedTypes, "text/plain")
	return p
}

// Check validates a single file against the policy.
func (p AttachmentPolicy) Check(f FileRef) error {
	if f.Size > p.MaxSize {
		return fmt.Errorf("%s: %w (max %d bytes)", f.Name, ErrFileTooLarge, p.MaxSize)
	}
	for _, t := range p.AllowedTypes {
		if f.ContentType == t {
			return nil
		}
	}
	return fmt.Errorf("%s: %w (%s)", f.Name, ErrFileType, f.ContentType)
}

// RejectedFile reports one file that failed validation and why. The
// rest of the batch still attaches.
type RejectedFile struct {
	File   FileRef
	Reason error
}

// Collector accumulates per-question answers for an open set of
// questions. It holds exactly one Answer per Question at all times.
type Collector struct {
	questions []Question
	answers   []Answer
	index     map[uint]int
	policy    AttachmentPolicy
}

// NewCollector produces one Answer entry per Question, pre-filled from
// existing answers when resuming, else empty.
func NewCollector(questions []Question, existing []Answer, policy AttachmentPolicy) *Collector {
	c := &Collector{
		questions: questions,
		answers:   make([]Answer, len(questions)),
		index:     make(map[uint]int, len(questions)),
		policy:    policy,
	}

	byQuestion := make(map[uint]Answer, len(existing))
	for _, a := range existing {
		byQuestion[a.QuestionID] = a
	}

	for i, q := range questions {
		c.index[q.ID] = i
		if a, ok := byQuestion[q.ID]; ok {
			a.QuestionID = q.ID
			if a.Selected == nil {
				a.Selected = []int{}
			}
			c.answers[i] = a
		} else {
			c.answers[i] = Answer{QuestionID: q.ID, Selected: []int{}}
		}
	}
	return c
}

// SetText overwrites the free-text answer. Valid for any question,
// only meaningful for the open kind.
func (c *Collector) SetText(questionID uint, text string) error {
	i, ok := c.index[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	c.answers[i].Text = text
	return nil
}

// ToggleOption selects or deselects an option. With allowMultiple
// false the selection collapses to a singleton; with true it inserts
// if absent, removes if present.
func (c *Collector) ToggleOption(questionID uint, optionIndex int, allowMultiple bool) error {
	i, ok := c.index[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	if optionIndex < 0 || optionIndex >= len(c.questions[i].Options) {
		return ErrUnknownOption
	}

	if !allowMultiple {
		c.answers[i].Selected = []int{optionIndex}
		return nil
	}

	selected := c.answers[i].Selected
	for j, v := range selected {
		if v == optionIndex {
			c.answers[i].Selected = append(selected[:j], selected[j+1:]...)
			return nil
		}
	}
	c.answers[i].Selected = append(selected, optionIndex)
	return nil
}

// AttachFiles validates each file individually; accepted files attach,
// rejected ones are reported with their reason.
func (c *Collector) AttachFiles(questionID uint, files []FileRef) (accepted []FileRef, rejected []RejectedFile, err error) {
	i, ok := c.index[questionID]
	if !ok {
		return nil, nil, ErrUnknownQuestion
	}
	for _, f := range files {
		if checkErr := c.policy.Check(f); checkErr != nil {
			rejected = append(rejected, RejectedFile{File: f, Reason: checkErr})
			continue
		}
		accepted = append(accepted, f)
	}
	c.answers[i].Files = append(c.answers[i].Files, accepted...)
	return accepted, rejected, nil
}

// RemoveFile removes one attachment by position.
func (c *Collector) RemoveFile(questionID uint, fileIndex int) error {
	i, ok := c.index[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	files := c.answers[i].Files
	if fileIndex < 0 || fileIndex >= len(files) {
		return ErrUnknownOption
	}
	c.answers[i].Files = append(files[:fileIndex], files[fileIndex+1:]...)
	return nil
}

// Answer returns a copy of the current answer for one question.
func (c *Collector) Answer(questionID uint) (Answer, bool) {
	i, ok := c.index[questionID]
	if !ok {
		return Answer{}, false
	}
	return copyAnswer(c.answers[i]), true
}

// Answers returns a copy of all answers, index aligned with the
// question list.
func (c *Collector) Answers() []Answer {
	out := make([]Answer, len(c.answers))
	for i, a := range c.answers {
		out[i] = copyAnswer(a)
	}
	return out
}

// Answered reports whether an answer counts as given: trimmed
// non-empty text for open questions, a non-empty selection otherwise.
func Answered(kind QuestionKind, a Answer) bool {
	if kind == KindOpen {
		return strings.TrimSpace(a.Text) != ""
	}
	return len(a.Selected) > 0
}

// AllRequiredAnswered gates submission in every flow that collects
// required-question answers.
func (c *Collector) AllRequiredAnswered() bool {
	return len(c.MissingRequired()) == 0
}

// MissingRequired lists required questions that are still unanswered.
func (c *Collector) MissingRequired() []uint {
	var missing []uint
	for i, q := range c.questions {
		if q.Required && !Answered(q.Kind, c.answers[i]) {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

// AllRequiredAnswered is the standalone form of the shared validation
// rule, for callers that hold answers outside a collector.
func AllRequiredAnswered(questions []Question, answers []Answer) bool {
	byQuestion := make(map[uint]Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}
	for _, q := range questions {
		if q.Required && !Answered(q.Kind, byQuestion[q.ID]) {
			return false
		}
	}
	return true
}

func copyAnswer(a Answer) Answer {
	out := a
	out.Selected = append([]int(nil), a.Selected...)
	if out.Selected == nil {
		out.Selected = []int{}
	}
	out.Files = append([]FileRef(nil), a.Files...)
	return out
}
