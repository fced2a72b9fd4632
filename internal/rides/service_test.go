package rides

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/ridepoolhq/ridepool-backend/pkg/db/models"
	pkgerrors "github.com/ridepoolhq/ridepool-backend/pkg/errors"
	"github.com/ridepoolhq/ridepool-backend/pkg/types"
	"gorm.io/gorm"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRideRepository struct {
	rides          map[int64]*models.Ride
	participations []*models.Participation
	usernames      map[int64]string
	nextRideID     int64
	nextPartID     int64

	takenCodes map[string]bool
	createErr  error
}

func newStubRideRepository() *stubRideRepository {
	return &stubRideRepository{
		rides:      map[int64]*models.Ride{},
		usernames:  map[int64]string{},
		nextRideID: 1,
		nextPartID: 1,
		takenCodes: map[string]bool{},
	}
}

func (s *stubRideRepository) Create(ctx context.Context, ride *models.Ride) error {
	if s.createErr != nil {
		return s.createErr
	}
	if s.takenCodes[ride.Code] {
		return errors.New("duplicate key value violates unique constraint \"uq_rides_code\"")
	}
	ride.ID = s.nextRideID
	s.nextRideID++
	ride.CreatedAt = time.Now().UTC()
	ride.UpdatedAt = ride.CreatedAt
	s.rides[ride.ID] = ride
	s.takenCodes[ride.Code] = true
	return nil
}

func (s *stubRideRepository) FindByID(ctx context.Context, id int64) (*models.Ride, error) {
	if ride, ok := s.rides[id]; ok {
		copied := *ride
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRideRepository) FindByCode(ctx context.Context, code string) (*models.Ride, error) {
	for _, ride := range s.rides {
		if ride.Code == code {
			copied := *ride
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRideRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	return s.takenCodes[code], nil
}

func (s *stubRideRepository) ListAll(ctx context.Context) ([]models.Ride, error) {
	out := make([]models.Ride, 0, len(s.rides))
	for id := int64(1); id < s.nextRideID; id++ {
		if ride, ok := s.rides[id]; ok {
			out = append(out, *ride)
		}
	}
	return out, nil
}

func (s *stubRideRepository) ListOwned(ctx context.Context, userID int64) ([]models.Ride, error) {
	var out []models.Ride
	for id := int64(1); id < s.nextRideID; id++ {
		if ride, ok := s.rides[id]; ok && ride.CreatedBy == userID {
			out = append(out, *ride)
		}
	}
	return out, nil
}

func (s *stubRideRepository) ListJoined(ctx context.Context, userID int64) ([]models.Ride, error) {
	var out []models.Ride
	for _, p := range s.participations {
		if p.UserID == userID {
			if ride, ok := s.rides[p.RideID]; ok {
				out = append(out, *ride)
			}
		}
	}
	return out, nil
}

func (s *stubRideRepository) ListAvailable(ctx context.Context, userID int64) ([]models.Ride, error) {
	joined := map[int64]bool{}
	for _, p := range s.participations {
		if p.UserID == userID {
			joined[p.RideID] = true
		}
	}
	var out []models.Ride
	for id := int64(1); id < s.nextRideID; id++ {
		if ride, ok := s.rides[id]; ok && !joined[id] {
			out = append(out, *ride)
		}
	}
	return out, nil
}

func (s *stubRideRepository) UpdateFields(ctx context.Context, id int64, fields map[string]any) error {
	ride, ok := s.rides[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range fields {
		switch key {
		case "title":
			ride.Title = value.(string)
		case "description":
			if value == nil {
				ride.Description = nil
			} else {
				v := value.(string)
				ride.Description = &v
			}
		case "start_time":
			ride.StartTime = value.(time.Time)
		case "is_active":
			ride.IsActive = value.(bool)
		case "updated_at":
			ride.UpdatedAt = value.(time.Time)
		}
	}
	return nil
}

func (s *stubRideRepository) Delete(ctx context.Context, id int64) error {
	delete(s.rides, id)
	kept := s.participations[:0]
	for _, p := range s.participations {
		if p.RideID != id {
			kept = append(kept, p)
		}
	}
	s.participations = kept
	return nil
}

func (s *stubRideRepository) AddParticipant(ctx context.Context, p *models.Participation) error {
	p.ID = s.nextPartID
	s.nextPartID++
	p.JoinedAt = time.Now().UTC()
	p.UpdatedAt = p.JoinedAt
	s.participations = append(s.participations, p)
	return nil
}

func (s *stubRideRepository) ListParticipants(ctx context.Context, rideID int64) ([]ParticipantRow, error) {
	var out []ParticipantRow
	for _, p := range s.participations {
		if p.RideID != rideID {
			continue
		}
		out = append(out, ParticipantRow{
			ID:        p.ID,
			UserID:    p.UserID,
			RideID:    p.RideID,
			Username:  s.usernames[p.UserID],
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			JoinedAt:  p.JoinedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return out, nil
}

func newTestService(t *testing.T, repo *stubRideRepository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		TxRunner:    stubTxRunner{},
		RepoFactory: func(tx *gorm.DB) rideRepository { return repo },
		Reader:      repo,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func sampleCreateRequest() CreateRideRequest {
	return CreateRideRequest{
		Title:     "Trip to the lake",
		StartTime: types.NewUTCTime(time.Now().Add(24 * time.Hour)),
	}
}

func TestCreateAssignsCodeAndAutoJoinsOwner(t *testing.T) {
	repo := newStubRideRepository()
	svc := newTestService(t, repo)

	dto, err := svc.Create(context.Background(), 7, sampleCreateRequest())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if !regexp.MustCompile(`^[A-Z0-9]{6}$`).MatchString(dto.Code) {
		t.Fatalf("code %q does not match ^[A-Z0-9]{6}$", dto.Code)
	}
	if !dto.IsActive {
		t.Fatal("new ride should be active")
	}
	if dto.CreatedBy != 7 {
		t.Fatalf("expected owner 7, got %d", dto.CreatedBy)
	}

	if len(repo.participations) != 1 {
		t.Fatalf("expected owner auto-join, got %d participations", len(repo.participations))
	}
	if repo.participations[0].UserID != 7 || repo.participations[0].RideID != dto.ID {
		t.Fatalf("auto-join row mismatch: %+v", repo.participations[0])
	}
}

func TestCreateRetriesOnCodeCollision(t *testing.T) {
	repo := newStubRideRepository()
	svc := newTestService(t, repo)

	first, err := svc.Create(context.Background(), 1, sampleCreateRequest())
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.Create(context.Background(), 1, sampleCreateRequest())
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.Code == second.Code {
		t.Fatalf("two rides share code %q", first.Code)
	}
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	repo := newStubRideRepository()
	svc := newTestService(t, repo)

	req := sampleCreateRequest()
	req.Title = "   "
	_, err := svc.Create(context.Background(), 1, req)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestGetMissingRideIsNotFound(t *testing.T) {
	repo := newStubRideRepository()
	svc := newTestService(t, repo)

	_, err := svc.Get(context.Background(), 42)
	assertCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.GetByCode(context.Background(), "ABC123")
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestGetByCodeNormalizesInput(t *testing.T) {
	repo := newStubRideRepository()
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), 1, sampleCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	lower := "  " + string([]byte(created.Code)) + " "
	dto, err := svc.GetByCode(context.Background(), lower)
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if dto.ID != created.ID {
		t.Fatalf("expected ride %d, got %d", created.ID, dto.ID)
	}
}

func TestUpdateSparseSemantics(t *testing.T) {
	repo := newStubRideRepository()
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), 1, sampleCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(context.Background(), 1, created.ID, UpdateRideRequest{
		IsActive: types.NewOptional(false),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.IsActive {
		t.Fatal("is_active should have been cleared")
	}
	if updated.Title != created.Title {
		t.Fatalf("title changed unexpectedly: %q -> %q", created.Title, updated.Title)
	}
	if !updated.StartTime.Equal(created.StartTime.Time) {
		t.Fatal("start_time changed unexpectedly")
	}
}

func TestUpdateClearsDescriptionOnExplicitNull(t *testing.T) {
	repo := newStubRideRepository()
	svc := newTestService(t, repo)

	desc := "meet at the north entrance"
	req := sampleCreateRequest()
	req.Description = &desc
	created, err := svc.Create(context.Background(), 1, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(context.Background(), 1, created.ID, UpdateRideRequest{
		Description: types.NullOptional[string](),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != nil {
		t.Fatalf("description should be cleared, got %q", *updated.Description)
	}
}

func TestUpdateRejectsNullTitle(t *testing.T) {
	repo := newStubRideRepository()
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), 1, sampleCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Update(context.Background(), 1, created.ID, UpdateRideRequest{
		Title: types.NullOptional[string](),
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateByNonOwnerIsForbidden(t *testing.T) {
	repo := newStubRideRepository()
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), 1, sampleCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Update(context.Background(), 2, created.ID, UpdateRideRequest{
		IsActive: types.NewOptional(false),
	})
	assertCode(t, err, pkgerrors.CodeForbidden)

	refetched, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if !refetched.IsActive {
		t.Fatal("forbidden update must not mutate the ride")
	}
}

func TestUpdateMissingRideIsNotFoundEvenForNonOwner(t *testing.T) {
	repo := newStubRideRepository()
	svc := newTestService(t, repo)

	_, err := svc.Update(context.Background(), 99, 12345, UpdateRideRequest{
		IsActive: types.NewOptional(false),
	})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestDeleteCascadesParticipations(t *testing.T) {
	repo := newStubRideRepository()
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), 1, sampleCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.AddParticipant(context.Background(), &models.Participation{UserID: 2, RideID: created.ID}); err != nil {
		t.Fatalf("add participant: %v", err)
	}

	if err := svc.Delete(context.Background(), 1, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err = svc.Get(context.Background(), created.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)

	participants, err := svc.Participants(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("participants after delete: %v", err)
	}
	if len(participants) != 0 {
		t.Fatalf("expected empty participant list after delete, got %d", len(participants))
	}
}

func TestDeleteByNonOwnerIsForbidden(t *testing.T) {
	repo := newStubRideRepository()
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), 1, sampleCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.Delete(context.Background(), 2, created.ID)
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestParticipantsCarryUsernames(t *testing.T) {
	repo := newStubRideRepository()
	repo.usernames[1] = "alice"
	repo.usernames[2] = "bob"
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), 1, sampleCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.AddParticipant(context.Background(), &models.Participation{UserID: 2, RideID: created.ID}); err != nil {
		t.Fatalf("add participant: %v", err)
	}

	participants, err := svc.Participants(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(participants))
	}
	if participants[0].Username != "alice" || participants[1].Username != "bob" {
		t.Fatalf("unexpected usernames: %+v", participants)
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}
