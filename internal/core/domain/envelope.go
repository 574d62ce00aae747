package domain

// Envelope is the success shape returned by every service operation.
type Envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func OK[T any](msg string, data T) *Envelope[T] {
	return &Envelope[T]{Status: true, Message: msg, Data: data}
}
