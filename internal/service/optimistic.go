package service

// mutateOptimistically runs the optimistic-update-with-rollback sequence:
// apply the local delta, issue the durable write, and undo the delta when the
// write fails. The error from the write is returned unchanged so callers can
// surface it.
func mutateOptimistically(apply func() (rollback func()), commit func() error) error {
	rollback := apply()
	if err := commit(); err != nil {
		if rollback != nil {
			rollback()
		}
		return err
	}
	return nil
}
