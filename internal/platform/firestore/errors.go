package firestore

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind is what a Firestore failure means to a key-value caller.
type Kind int

const (
	KindOther Kind = iota
	KindNotFound
	// KindUnavailable covers transient backend failures worth retrying later.
	KindUnavailable
	KindCanceled
)

// Classify maps a Firestore or gRPC error onto a Kind. nil maps to KindOther.
func Classify(err error) Kind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	switch status.Code(err) {
	case codes.NotFound:
		return KindNotFound
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.Aborted:
		return KindUnavailable
	case codes.Canceled, codes.DeadlineExceeded:
		return KindCanceled
	}
	return KindOther
}
