package application

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"user-lifecycle/internal/users/domain"
	"user-lifecycle/internal/users/ports"
	"user-lifecycle/pkg/breaker"
	"user-lifecycle/pkg/errors"
	"user-lifecycle/pkg/events"
	"user-lifecycle/pkg/logger"
)

// MockUserRepository is an in-memory implementation of UserRepository
type MockUserRepository struct {
	users       map[uint]*domain.User
	nextID      uint
	createCalls int
	getByIDErr  error
	existsErr   error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:  make(map[uint]*domain.User),
		nextID: 1,
	}
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	if m.getByIDErr != nil {
		return nil, m.getByIDErr
	}
	user, ok := m.users[id]
	if !ok {
		return nil, domain.NewUserNotFound(id)
	}
	copied := *user
	return &copied, nil
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.createCalls++
	user.ID = m.nextID
	m.nextID++
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	delete(m.users, id)
	return nil
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	events []events.LifecycleEvent
	err    error
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.LifecycleEvent) error {
	m.events = append(m.events, event)
	return m.err
}

var fixedNow = time.Date(2024, 5, 17, 9, 41, 27, 0, time.UTC)

func newTestUseCase(repo *MockUserRepository, publisher *MockEventPublisher) (*UserUseCase, *breaker.Registry) {
	log := logger.New("test", "error")
	reg := breaker.NewRegistry(breaker.Config{MaxRequests: 1, Timeout: time.Hour, ConsecutiveFailures: 3}, log)

	var pub ports.EventPublisher
	if publisher != nil {
		pub = publisher
	}

	uc := NewUserUseCase(repo, pub, reg, log)
	uc.now = func() time.Time { return fixedNow }
	return uc, reg
}

func forceOpen(t *testing.T, reg *breaker.Registry, name string) {
	t.Helper()
	b := reg.Get(name)
	for i := 0; i < 3; i++ {
		_, _ = b.Execute(func() (interface{}, error) { return nil, stderrors.New("dependency down") })
	}
	if b.State() != breaker.StateOpen {
		t.Fatalf("expected breaker %s to be open, got %s", name, b.State())
	}
}

func TestCreateUser_Success(t *testing.T) {
	// Arrange
	repo := NewMockUserRepository()
	publisher := &MockEventPublisher{}
	useCase, _ := newTestUseCase(repo, publisher)

	// Act
	output, err := useCase.CreateUser(context.Background(), CreateUserInput{
		Name:  "Alice",
		Email: "alice@x.com",
		Age:   30,
	})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.User.ID != 1 {
		t.Errorf("expected ID 1, got %d", output.User.ID)
	}
	wantCreated := time.Date(2024, 5, 17, 9, 41, 0, 0, time.UTC)
	if !output.User.CreatedAt.Equal(wantCreated) {
		t.Errorf("expected createdAt %v, got %v", wantCreated, output.User.CreatedAt)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event published, got %d", len(publisher.events))
	}
	want := events.LifecycleEvent{Operation: events.OperationCreate, Email: "alice@x.com", UserName: "Alice"}
	if publisher.events[0] != want {
		t.Errorf("expected event %+v, got %+v", want, publisher.events[0])
	}
}

func TestCreateUser_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input CreateUserInput
		want  error
	}{
		{"blank name wins", CreateUserInput{Name: "", Email: "", Age: 0}, domain.ErrNameRequired},
		{"blank email", CreateUserInput{Name: "Bob", Email: "  ", Age: 0}, domain.ErrEmailRequired},
		{"non-positive age", CreateUserInput{Name: "Bob", Email: "bob@x.com", Age: 0}, domain.ErrAgeNotPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockUserRepository()
			publisher := &MockEventPublisher{}
			useCase, _ := newTestUseCase(repo, publisher)

			_, err := useCase.CreateUser(context.Background(), tt.input)

			if !errors.Is(err, errors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !stderrors.Is(err, tt.want) {
				t.Errorf("expected cause %v, got %v", tt.want, err)
			}
			if repo.createCalls != 0 || len(publisher.events) != 0 {
				t.Error("expected no save and no publish")
			}
		})
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	// Arrange
	repo := NewMockUserRepository()
	publisher := &MockEventPublisher{}
	useCase, _ := newTestUseCase(repo, publisher)
	_, _ = useCase.CreateUser(context.Background(), CreateUserInput{Name: "Alice", Email: "alice@x.com", Age: 30})

	// Act
	_, err := useCase.CreateUser(context.Background(), CreateUserInput{Name: "Other", Email: "alice@x.com", Age: 22})

	// Assert
	if !errors.Is(err, errors.CodeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if !errors.Is(err, errors.CodeServiceUnavailable) {
		t.Errorf("expected write fallback to wrap the cause, got %v", err)
	}
	if repo.createCalls != 1 {
		t.Errorf("expected a single save, got %d", repo.createCalls)
	}
	if len(publisher.events) != 1 {
		t.Errorf("expected only the first create to publish, got %d events", len(publisher.events))
	}
}

func TestCreateUser_PublishFailureIsSwallowed(t *testing.T) {
	repo := NewMockUserRepository()
	publisher := &MockEventPublisher{err: stderrors.New("broker unreachable")}
	useCase, _ := newTestUseCase(repo, publisher)

	output, err := useCase.CreateUser(context.Background(), CreateUserInput{Name: "Alice", Email: "alice@x.com", Age: 30})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), output.User.ID)
	if stored == nil || stored.Email != "alice@x.com" {
		t.Errorf("expected persisted record to be returned, got %+v", output.User)
	}
}

func TestCreateUser_EventBreakerOpen(t *testing.T) {
	repo := NewMockUserRepository()
	publisher := &MockEventPublisher{}
	useCase, reg := newTestUseCase(repo, publisher)
	forceOpen(t, reg, BreakerUserEvents)

	output, err := useCase.CreateUser(context.Background(), CreateUserInput{Name: "Alice", Email: "alice@x.com", Age: 30})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.User.ID == 0 {
		t.Error("expected stored user")
	}
	if len(publisher.events) != 0 {
		t.Errorf("expected no publish attempt through an open breaker, got %d", len(publisher.events))
	}
}

func TestCreateUser_ServiceBreakerOpen(t *testing.T) {
	repo := NewMockUserRepository()
	useCase, reg := newTestUseCase(repo, &MockEventPublisher{})
	forceOpen(t, reg, BreakerUserService)

	_, err := useCase.CreateUser(context.Background(), CreateUserInput{Name: "Alice", Email: "alice@x.com", Age: 30})

	if !errors.Is(err, errors.CodeServiceUnavailable) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
	if !stderrors.Is(err, breaker.ErrCircuitOpen) {
		t.Errorf("expected circuit open cause, got %v", err)
	}
	if repo.createCalls != 0 {
		t.Error("expected store untouched")
	}
}

func TestCreateUser_NoPublisher(t *testing.T) {
	useCase, _ := newTestUseCase(NewMockUserRepository(), nil)

	_, err := useCase.CreateUser(context.Background(), CreateUserInput{Name: "Alice", Email: "alice@x.com", Age: 30})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestCreateUser_ClientErrorsDoNotTripBreaker(t *testing.T) {
	useCase, reg := newTestUseCase(NewMockUserRepository(), &MockEventPublisher{})

	for i := 0; i < 10; i++ {
		_, _ = useCase.CreateUser(context.Background(), CreateUserInput{Name: "", Email: "x@x.com", Age: 1})
	}

	if state := reg.Get(BreakerUserService).State(); state != breaker.StateClosed {
		t.Errorf("expected closed breaker, got %s", state)
	}
}

func TestGetUser_Success(t *testing.T) {
	repo := NewMockUserRepository()
	useCase, _ := newTestUseCase(repo, &MockEventPublisher{})
	created, _ := useCase.CreateUser(context.Background(), CreateUserInput{Name: "Alice", Email: "alice@x.com", Age: 30})

	output, err := useCase.GetUser(context.Background(), GetUserInput{ID: created.User.ID})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.Degraded {
		t.Error("expected a real record")
	}
	if output.User.Name != "Alice" {
		t.Errorf("expected name 'Alice', got '%s'", output.User.Name)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	useCase, _ := newTestUseCase(NewMockUserRepository(), &MockEventPublisher{})

	_, err := useCase.GetUser(context.Background(), GetUserInput{ID: 999})

	if !errors.Is(err, errors.CodeNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestGetUser_BreakerOpenServesPlaceholder(t *testing.T) {
	useCase, reg := newTestUseCase(NewMockUserRepository(), &MockEventPublisher{})
	forceOpen(t, reg, BreakerUserService)

	output, err := useCase.GetUser(context.Background(), GetUserInput{ID: 999})

	if err != nil {
		t.Fatalf("expected placeholder, got error %v", err)
	}
	if !output.Degraded {
		t.Error("expected degraded output")
	}
	u := output.User
	if u.ID != 999 || u.Email != domain.UnavailableEmail || u.Name != domain.UnavailableName || u.Age != 0 {
		t.Errorf("unexpected placeholder %+v", u)
	}
	if !u.CreatedAt.Equal(fixedNow) {
		t.Errorf("expected createdAt %v, got %v", fixedNow, u.CreatedAt)
	}
}

func TestGetUser_StoreFailureServesPlaceholder(t *testing.T) {
	repo := NewMockUserRepository()
	repo.getByIDErr = errors.NewInternal("failed to get user", stderrors.New("connection refused"))
	useCase, _ := newTestUseCase(repo, &MockEventPublisher{})

	output, err := useCase.GetUser(context.Background(), GetUserInput{ID: 7})

	if err != nil {
		t.Fatalf("expected placeholder, got error %v", err)
	}
	if output.User.ID != 7 || !output.Degraded {
		t.Errorf("unexpected output %+v", output)
	}
}

func TestUpdateUser_Success(t *testing.T) {
	repo := NewMockUserRepository()
	publisher := &MockEventPublisher{}
	useCase, _ := newTestUseCase(repo, publisher)
	created, _ := useCase.CreateUser(context.Background(), CreateUserInput{Name: "Alice", Email: "alice@x.com", Age: 30})

	output, err := useCase.UpdateUser(context.Background(), UpdateUserInput{
		ID: created.User.ID, Name: "Alicia", Email: "alicia@x.com", Age: 31,
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.User.Name != "Alicia" || output.User.Email != "alicia@x.com" || output.User.Age != 31 {
		t.Errorf("unexpected user %+v", output.User)
	}
	if len(publisher.events) != 1 {
		t.Errorf("expected no event for update, got %d events in total", len(publisher.events))
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	useCase, _ := newTestUseCase(NewMockUserRepository(), &MockEventPublisher{})

	_, err := useCase.UpdateUser(context.Background(), UpdateUserInput{ID: 5, Name: "A", Email: "a@x.com", Age: 1})

	if !errors.Is(err, errors.CodeNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestUpdateUser_ValidatesBeforeLookup(t *testing.T) {
	useCase, _ := newTestUseCase(NewMockUserRepository(), &MockEventPublisher{})

	_, err := useCase.UpdateUser(context.Background(), UpdateUserInput{ID: 5, Name: "A", Email: "", Age: 0})

	if !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !stderrors.Is(err, domain.ErrEmailRequired) {
		t.Errorf("expected email violation first, got %v", err)
	}
}

func TestUpdateUser_EmailTakenByAnotherUser(t *testing.T) {
	useCase, _ := newTestUseCase(NewMockUserRepository(), &MockEventPublisher{})
	_, _ = useCase.CreateUser(context.Background(), CreateUserInput{Name: "Alice", Email: "alice@x.com", Age: 30})
	bob, _ := useCase.CreateUser(context.Background(), CreateUserInput{Name: "Bob", Email: "bob@x.com", Age: 40})

	_, err := useCase.UpdateUser(context.Background(), UpdateUserInput{ID: bob.User.ID, Name: "Bob", Email: "alice@x.com", Age: 40})

	if !errors.Is(err, errors.CodeConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}
}

func TestDeleteUser_PublishesPreDeletionData(t *testing.T) {
	repo := NewMockUserRepository()
	publisher := &MockEventPublisher{}
	useCase, _ := newTestUseCase(repo, publisher)
	created, _ := useCase.CreateUser(context.Background(), CreateUserInput{Name: "Alice", Email: "alice@x.com", Age: 30})

	err := useCase.DeleteUser(context.Background(), DeleteUserInput{ID: created.User.ID})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), created.User.ID); !errors.Is(err, errors.CodeNotFound) {
		t.Error("expected record to be gone")
	}
	if len(publisher.events) != 2 {
		t.Fatalf("expected create and delete events, got %d", len(publisher.events))
	}
	want := events.LifecycleEvent{Operation: events.OperationDelete, Email: "alice@x.com", UserName: "Alice"}
	if publisher.events[1] != want {
		t.Errorf("expected event %+v, got %+v", want, publisher.events[1])
	}
}

func TestDeleteUser_PublishFailureReportsUnavailableAfterDelete(t *testing.T) {
	repo := NewMockUserRepository()
	publisher := &MockEventPublisher{}
	useCase, _ := newTestUseCase(repo, publisher)
	created, _ := useCase.CreateUser(context.Background(), CreateUserInput{Name: "Alice", Email: "alice@x.com", Age: 30})
	publisher.err = stderrors.New("broker unreachable")

	err := useCase.DeleteUser(context.Background(), DeleteUserInput{ID: created.User.ID})

	if !errors.Is(err, errors.CodeServiceUnavailable) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
	// The row is removed before publishing and is not restored.
	if _, err := repo.GetByID(context.Background(), created.User.ID); !errors.Is(err, errors.CodeNotFound) {
		t.Error("expected record to stay deleted")
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	publisher := &MockEventPublisher{}
	useCase, _ := newTestUseCase(NewMockUserRepository(), publisher)

	err := useCase.DeleteUser(context.Background(), DeleteUserInput{ID: 3})

	if !errors.Is(err, errors.CodeNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
	if len(publisher.events) != 0 {
		t.Error("expected no event")
	}
}
