// Package hotconf keeps a typed configuration value in sync with the file
// it was loaded from, without restarting the process.
//
// New loads and decodes the file once. Monitor then starts a background
// watcher that compares the file's modification time against the last one
// seen and, when it changes, decodes the file again and publishes the new
// value into the shared store returned by Data:
//
//	type Config struct {
//		ID uint64 `json:"id"`
//	}
//
//	m, err := hotconf.New[Config]("./config.json", hotconf.WithInterval(30*time.Second))
//	if err != nil {
//		return err
//	}
//	cfg := m.Data()
//	task, err := m.Monitor(ctx)
//	if err != nil {
//		return err
//	}
//	fmt.Println(cfg.Get().ID)
//	return task.Wait()
//
// By default a reload that fails stops the watcher; the last good value
// stays in the store. WithFailurePolicy(config.ContinueOnFailure) keeps
// polling instead. See the examples/ directory for complete programs.
package hotconf
