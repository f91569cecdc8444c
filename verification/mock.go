package verification

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const mockFailureMessage = "Payment verification failed. Please try again."

const referenceChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// Mock simulates the verification collaborator with a configurable success
// rate. Successful verifications mint a TX-prefixed transaction id.
type Mock struct {
	successRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMock(successRate float64) *Mock {
	return &Mock{
		successRate: successRate,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *Mock) Verify(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	roll := m.rng.Float64()
	id := make([]byte, 9)
	for i := range id {
		id[i] = referenceChars[m.rng.Intn(len(referenceChars))]
	}
	m.mu.Unlock()

	if roll >= m.successRate {
		return nil, &Error{Message: mockFailureMessage}
	}

	return &Result{
		TransactionID: "TX-" + string(id),
		Message:       "Payment verified successfully",
	}, nil
}
