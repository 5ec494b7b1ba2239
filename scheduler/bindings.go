package scheduler

// Bindings is the set of tasks a process owns. it's confined to the owning process.
type Bindings struct {
	tokens map[string]*Token
}

func NewBindings() *Bindings {
	return &Bindings{tokens: make(map[string]*Token)}
}

// Add binds token to the owner and forgets tasks that are already done
func (b *Bindings) Add(token *Token) {
	for id, t := range b.tokens {
		if t.Done() {
			delete(b.tokens, id)
		}
	}
	b.tokens[token.id] = token
}

// Cancel cancels and unbinds token. it returns false if token wasn't bound.
func (b *Bindings) Cancel(token *Token) bool {
	if token == nil {
		return false
	}
	token.Cancel()
	if _, ok := b.tokens[token.id]; !ok {
		return false
	}
	delete(b.tokens, token.id)
	return true
}

// CancelAll cancels every bound task
func (b *Bindings) CancelAll() {
	for id, t := range b.tokens {
		t.Cancel()
		delete(b.tokens, id)
	}
}

// Len returns the number of bound tasks that may still fire
func (b *Bindings) Len() int {
	n := 0
	for _, t := range b.tokens {
		if !t.Done() {
			n++
		}
	}
	return n
}
