package ui

import "sync"

// MockTerminal records everything written to it.
type MockTerminal struct {
	mu     sync.Mutex
	Output []string
	Errors []string
	Status []string
}

var _ Terminal = &MockTerminal{}

func (m *MockTerminal) Print(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Output = append(m.Output, line)
}

func (m *MockTerminal) Error(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors = append(m.Errors, line)
}

func (m *MockTerminal) SetStatus(lines []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Status = append([]string{}, lines...)
}

func (m *MockTerminal) CanUpdateStatus() bool {
	return true
}
