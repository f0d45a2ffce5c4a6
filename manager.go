package sharedserver

import "sync"

// listConcurrency bounds how many names List queries in parallel, a bounded
// worker-pool fan-out rather than one goroutine per name.
const listConcurrency = 10

// fanOutInfo queries GetInfo for each name concurrently, bounded by
// listConcurrency, and returns results in the same order as names. A
// per-name failure becomes that entry's Error field instead of failing the
// whole call: one corrupt record should never hide the rest of the list.
func fanOutInfo(dir string, names []string) []Info {
	results := make([]Info, len(names))
	if len(names) == 0 {
		return results
	}

	sem := make(chan struct{}, listConcurrency)
	var wg sync.WaitGroup

	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			info, err := GetInfo(dir, name)
			if err != nil {
				results[i] = Info{Name: name, State: Stopped.String(), Error: err.Error()}
				return
			}
			results[i] = *info
		}(i, name)
	}

	wg.Wait()
	return results
}
