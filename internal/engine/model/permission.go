package model

import "time"

// PermissionRequest is an outstanding tool-approval prompt.
type PermissionRequest struct {
	PermissionID string
	ToolName     string
	Description  string
	ToolInput    map[string]any
	Context      string
	ReceivedAt   time.Time
}

// QuestionOption is a single selectable choice within a Question, carrying
// both the label used in answers and the descriptive text shown alongside it.
type QuestionOption struct {
	Label       string
	Description string
}

// Question is a single prompt within a QuestionData set.
type Question struct {
	Prompt      string
	Header      string
	Options     []QuestionOption
	MultiSelect bool
}

// QuestionData is the live state of an AskUserQuestion permission prompt.
type QuestionData struct {
	Questions      []Question
	Answers        map[string]string
	OtherBuffer    string
	EditingOther   bool
	FocusedIndex   int
	OptionCursor   int
	SelectedByQ    map[int]map[int]bool
	CurrentIndex   int
}

// NewQuestionData builds a QuestionData from a decoded set of questions.
func NewQuestionData(questions []Question) *QuestionData {
	return &QuestionData{
		Questions:   questions,
		Answers:     make(map[string]string),
		SelectedByQ: make(map[int]map[int]bool),
	}
}

// ToggleOption marks or unmarks an option as selected for the current
// question, honoring single- vs multi-select semantics.
func (q *QuestionData) ToggleOption(questionIndex, optionIndex int) {
	if questionIndex < 0 || questionIndex >= len(q.Questions) {
		return
	}
	question := q.Questions[questionIndex]
	selected, ok := q.SelectedByQ[questionIndex]
	if !ok {
		selected = make(map[int]bool)
		q.SelectedByQ[questionIndex] = selected
	}
	if !question.MultiSelect {
		for k := range selected {
			delete(selected, k)
		}
		selected[optionIndex] = true
		return
	}
	if selected[optionIndex] {
		delete(selected, optionIndex)
	} else {
		selected[optionIndex] = true
	}
}

// AnswerMap renders the selections into the prompt→answer map the wire
// protocol expects: multi-select answers are ", "-joined, single-select is
// the option label, and "Other" free text is used verbatim.
func (q *QuestionData) AnswerMap() map[string]string {
	result := make(map[string]string, len(q.Questions))
	for index, question := range q.Questions {
		selected := q.SelectedByQ[index]
		var labels []string
		for optionIndex, option := range question.Options {
			if !selected[optionIndex] {
				continue
			}
			if option.Label == "Other" && q.Answers[question.Prompt] != "" {
				labels = append(labels, q.Answers[question.Prompt])
				continue
			}
			labels = append(labels, option.Label)
		}
		joined := ""
		for i, label := range labels {
			if i > 0 {
				joined += ", "
			}
			joined += label
		}
		result[question.Prompt] = joined
	}
	return result
}
