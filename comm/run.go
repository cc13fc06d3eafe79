package comm

import "sync"

// Run creates a group of the given size, executes fn once per rank on its
// own goroutine, and waits for all ranks to return. The first non-nil
// error in rank order is returned.
//
// fn must use only the Comm it is handed and must keep collective call
// sequences identical across ranks; a rank skipping a collective blocks
// the whole group.
func Run(size int, fn func(c *Comm) error) error {
	comms, err := NewGroup(size)
	if err != nil {
		return err
	}

	errs := make([]error, size)
	var wg sync.WaitGroup
	wg.Add(size)
	for _, c := range comms {
		go func(c *Comm) {
			defer wg.Done()
			errs[c.Rank()] = fn(c)
		}(c)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
