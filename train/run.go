package train

import "fmt"

// Progress is called after every completed step of Run, with the
// 1-based step number and the cost after that step.
type Progress func(step int, cost float64)

// Run drives t for the given number of steps, reporting progress
// through report (if non-nil) after each step. It stops early and
// returns the underlying error if any MakeStep or Cost call fails.
func Run(t Trainer, iterations int, report Progress) error {
	for i := 1; i <= iterations; i++ {
		if err := t.MakeStep(); err != nil {
			return fmt.Errorf("train.Run: step %d: %w", i, err)
		}
		if report != nil {
			c, err := t.Cost()
			if err != nil {
				return fmt.Errorf("train.Run: step %d: %w", i, err)
			}
			report(i, c)
		}
	}
	return nil
}
