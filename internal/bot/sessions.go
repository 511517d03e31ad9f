package bot

// Work for one user runs on that user's worker goroutine in arrival order.
// Sessions are only read or mutated from the owning user's worker.

// enqueue schedules fn on the user's worker, starting one if the user is idle
func (r *sessionRegistry) enqueue(userID int64, fn func()) {
	r.mu.Lock()
	queue, running := r.queues[userID]
	r.queues[userID] = append(queue, fn)
	if running {
		r.mu.Unlock()
		return
	}
	r.workers.Add(1)
	r.mu.Unlock()

	go r.drain(userID)
}

func (r *sessionRegistry) drain(userID int64) {
	defer r.workers.Done()
	for {
		r.mu.Lock()
		queue := r.queues[userID]
		if len(queue) == 0 {
			delete(r.queues, userID)
			r.mu.Unlock()
			return
		}
		fn := queue[0]
		r.queues[userID] = queue[1:]
		r.mu.Unlock()

		runGuarded(fn)
	}
}

// runGuarded keeps the worker alive if fn panics past its own recover
func runGuarded(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

// wait blocks until every queued piece of work has finished
func (r *sessionRegistry) wait() {
	r.workers.Wait()
}

func (r *sessionRegistry) get(userID int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[userID]
}

func (r *sessionRegistry) put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.UserID] = s
}

func (r *sessionRegistry) remove(userID int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[userID]
	delete(r.sessions, userID)
	return s
}

func (r *sessionRegistry) newGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextGen++
	return r.nextGen
}

func (r *sessionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
