// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// cascadeStep is one named step of a rename cascade. Steps run in order;
// there is no compensation, so a failure leaves earlier steps applied. The
// error names the failed step and the steps that already committed, which
// makes the partial state diagnosable.
type cascadeStep struct {
	name string
	run  func() error
}

// runCascade executes the steps of a rename cascade in order.
func runCascade(steps []cascadeStep) error {
	var completed []string
	for _, step := range steps {
		if err := step.run(); err != nil {
			if len(completed) == 0 {
				return fmt.Errorf("rename cascade failed at step '%s': %w", step.name, err)
			}
			return fmt.Errorf("rename cascade failed at step '%s' (steps already applied without rollback: %s): %w",
				step.name, strings.Join(completed, ", "), err)
		}
		completed = append(completed, step.name)
	}
	return nil
}

// rewriteFiles replaces oldRef with newRef in every given file. The files are
// disjoint, so the rewrites run concurrently; the first error is reported and
// already-finished rewrites stay applied.
func rewriteFiles(paths []string, oldRef, newRef string) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(paths))

	for _, path := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			data, err := os.ReadFile(path)
			if err != nil {
				errs <- fmt.Errorf("failed to read %s: %w", path, err)
				return
			}
			updated := strings.ReplaceAll(string(data), oldRef, newRef)
			if updated == string(data) {
				return
			}
			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				errs <- fmt.Errorf("failed to rewrite %s: %w", path, err)
			}
		}(path)
	}

	wg.Wait()
	close(errs)
	return <-errs
}
