package services

// ItemResult is the outcome of pushing one record. Exactly one of Err and
// Skipped is set on a non-successful result.
type ItemResult[T any] struct {
	LocalID int64
	Item    T
	Err     error
	Skipped bool
}

func (r ItemResult[T]) OK() bool {
	return r.Err == nil && !r.Skipped
}

// PushReport collects per-item outcomes of a push batch.
type PushReport[T any] struct {
	Items []ItemResult[T]
}

func (r PushReport[T]) Succeeded() int {
	n := 0
	for _, it := range r.Items {
		if it.OK() {
			n++
		}
	}
	return n
}

func (r PushReport[T]) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.Err != nil {
			n++
		}
	}
	return n
}

func (r PushReport[T]) Skipped() int {
	n := 0
	for _, it := range r.Items {
		if it.Skipped {
			n++
		}
	}
	return n
}

// Errors returns the item failures in batch order.
func (r PushReport[T]) Errors() []error {
	var errs []error
	for _, it := range r.Items {
		if it.Err != nil {
			errs = append(errs, it.Err)
		}
	}
	return errs
}

// PullReport counts how server records were merged locally. Skipped counts
// server records that could not be represented locally.
type PullReport struct {
	Created int
	Updated int
	Skipped int
}

// SyncReport is the outcome of a full sync: push followed by pull.
type SyncReport[T any] struct {
	Push PushReport[T]
	Pull PullReport
}
