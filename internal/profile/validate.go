package profile

import (
	"errors"
	"fmt"
	"slices"
)

// Steps is the number of questionnaire steps.
const Steps = 4

// ErrIncomplete is returned when a questionnaire step is missing answers.
var ErrIncomplete = errors.New("profile incomplete")

// StepError reports which step failed and why.
type StepError struct {
	Step   int
	Reason string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %s", e.Step, e.Reason)
}

func (e *StepError) Unwrap() error { return ErrIncomplete }

// Step checks that the answers collected on the given questionnaire step are
// present. Steps are numbered from 1.
func (p Profile) Step(n int) error {
	switch n {
	case 1:
		if len(p.Interests) == 0 {
			return &StepError{Step: 1, Reason: "select at least one interest"}
		}
	case 2:
		if p.EducationLevel == "" || p.CurrentClass == "" {
			return &StepError{Step: 2, Reason: "education level and current class are required"}
		}
	case 3:
		if len(p.Subjects) == 0 {
			return &StepError{Step: 3, Reason: "select at least one subject"}
		}
	case 4:
		if len(p.Skills) == 0 || p.WorkStyle == "" {
			return &StepError{Step: 4, Reason: "select at least one skill and a work style"}
		}
	default:
		return fmt.Errorf("unknown step %d", n)
	}
	return nil
}

// Validate runs every step check and then verifies each answer against the
// accepted options.
func (p Profile) Validate() error {
	for n := 1; n <= Steps; n++ {
		if err := p.Step(n); err != nil {
			return err
		}
	}

	if err := allIn("interest", p.Interests, interests); err != nil {
		return err
	}
	if err := allIn("subject", p.Subjects, subjects); err != nil {
		return err
	}
	if err := allIn("skill", p.Skills, skills); err != nil {
		return err
	}
	if err := oneOf("educationLevel", p.EducationLevel, educationLevels); err != nil {
		return err
	}
	if err := oneOf("currentClass", p.CurrentClass, classes); err != nil {
		return err
	}
	if p.Stream != "" {
		if err := oneOf("stream", p.Stream, streams); err != nil {
			return err
		}
	}
	if err := oneOf("workStyle", p.WorkStyle, workStyles); err != nil {
		return err
	}
	if p.Location != "" {
		if err := oneOf("location", p.Location, locations); err != nil {
			return err
		}
	}
	return nil
}

func oneOf(field, v string, allowed []string) error {
	if !slices.Contains(allowed, v) {
		return fmt.Errorf("invalid %s %q", field, v)
	}
	return nil
}

func allIn(field string, vs, allowed []string) error {
	for _, v := range vs {
		if err := oneOf(field, v, allowed); err != nil {
			return err
		}
	}
	return nil
}
