package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/generation"
)

// MockGenerator implements generation.Generator for testing
type MockGenerator struct {
	// DistillRemsFn allows test cases to mock the DistillRems behavior
	DistillRemsFn func(ctx context.Context, transcript string, userID uuid.UUID) ([]*domain.Rem, error)

	// Default response values
	Rems []*domain.Rem
	Err  error

	// Call tracking for verification
	DistillRemsCalls struct {
		// mu protects the call tracking state for concurrent test cases
		mu sync.Mutex

		// Count tracks how many times DistillRems was called
		Count int

		// Transcripts contains all transcripts passed to DistillRems calls
		Transcripts []string

		// UserIDs contains all userIDs passed to DistillRems calls
		UserIDs []uuid.UUID
	}
}

// DistillRems implements the generation.Generator interface
func (m *MockGenerator) DistillRems(
	ctx context.Context,
	transcript string,
	userID uuid.UUID,
) ([]*domain.Rem, error) {
	// Track call details for verification
	m.DistillRemsCalls.mu.Lock()
	m.DistillRemsCalls.Count++
	m.DistillRemsCalls.Transcripts = append(m.DistillRemsCalls.Transcripts, transcript)
	m.DistillRemsCalls.UserIDs = append(m.DistillRemsCalls.UserIDs, userID)
	m.DistillRemsCalls.mu.Unlock()

	// Use custom function if provided
	if m.DistillRemsFn != nil {
		return m.DistillRemsFn(ctx, transcript, userID)
	}

	// Return default values
	return m.Rems, m.Err
}

// NewMockGeneratorWithRems creates a MockGenerator that returns the specified rems
func NewMockGeneratorWithRems(rems []*domain.Rem) *MockGenerator {
	return &MockGenerator{
		Rems: rems,
	}
}

// NewMockGeneratorWithError creates a MockGenerator that returns the specified error
func NewMockGeneratorWithError(err error) *MockGenerator {
	return &MockGenerator{
		Err: err,
	}
}

// NewMockGeneratorWithDefaultRems creates a MockGenerator with sample rem drafts
func NewMockGeneratorWithDefaultRems(userID uuid.UUID) *MockGenerator {
	rem1, _ := domain.NewRem(
		userID,
		"concepts/hexagonal-architecture",
		"Hexagonal architecture",
		"An architectural pattern that isolates the domain from external concerns.",
	)
	rem2, _ := domain.NewRem(
		userID,
		"concepts/dependency-inversion",
		"Dependency inversion",
		"High-level modules don't depend on low-level modules; both depend on abstractions.",
	)

	return &MockGenerator{
		Rems: []*domain.Rem{rem1, rem2},
	}
}

// MockGeneratorThatFails creates a MockGenerator that simulates a distillation failure
func MockGeneratorThatFails() *MockGenerator {
	return &MockGenerator{
		Err: generation.ErrGenerationFailed,
	}
}

// MockGeneratorWithTransientFailure creates a MockGenerator that simulates a transient failure
func MockGeneratorWithTransientFailure() *MockGenerator {
	return &MockGenerator{
		Err: generation.ErrTransientFailure,
	}
}

// MockGeneratorWithContentBlocked creates a MockGenerator that simulates content being blocked
func MockGeneratorWithContentBlocked() *MockGenerator {
	return &MockGenerator{
		Err: generation.ErrContentBlocked,
	}
}

// Reset resets the call tracking state
func (m *MockGenerator) Reset() {
	m.DistillRemsCalls.mu.Lock()
	defer m.DistillRemsCalls.mu.Unlock()

	m.DistillRemsCalls.Count = 0
	m.DistillRemsCalls.Transcripts = nil
	m.DistillRemsCalls.UserIDs = nil
}
