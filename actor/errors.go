package actor

import "errors"

var (
	ErrSystemStopping  = errors.New("actor system is stopping")
	ErrProcessStopping = errors.New("process is stopping")
	ErrNameTaken       = errors.New("name is already registered")
	ErrNotAlive        = errors.New("process is not alive")
	ErrAskTimeout      = errors.New("ask timed out")
	ErrNoSender        = errors.New("message has no sender")
	ErrNilActor        = errors.New("producer returned a nil actor")
)
