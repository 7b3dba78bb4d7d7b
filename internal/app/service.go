package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cirs/api/internal/authpw"
	"cirs/api/internal/cache"
	"cirs/api/internal/config"
	"cirs/api/internal/search"
	"cirs/api/internal/store"
	"cirs/api/internal/transcribe"
	"cirs/api/internal/util"
)

// Bounding box half-width applied to lat/lng filtering, in degrees. This is a
// flat-earth approximation, not a geodesic radius; the radius query parameter
// is accepted for compatibility but does not change the box.
const locationBoxDegrees = 0.05

const defaultListLimit = 50

type dataStore interface {
	CreateUser(context.Context, store.User) error
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	ListCategories(context.Context) ([]store.Category, error)
	GetCategory(context.Context, string) (store.Category, error)
	ResetCategories(context.Context, []store.Category) error
	InsertIssue(context.Context, store.Issue) error
	GetIssue(context.Context, string) (store.Issue, error)
	ListIssues(context.Context, store.IssueFilter) ([]store.Issue, error)
	ToggleVote(context.Context, string, string, string) (bool, error)
	InsertComment(context.Context, store.Comment) error
	ListComments(context.Context, string) ([]store.Comment, error)
	Ping(ctx context.Context) error
}

type searchService interface {
	Search(search.Query) search.Response
	IndexIssue(search.IssueRecord)
}

type attachmentArchive interface {
	StoreIssueAttachments(ctx context.Context, issueID string, imageBase64, voiceBase64 *string)
}

type Service struct {
	cfg         config.Config
	store       dataStore
	auth        *authpw.Service
	transcriber transcribe.Transcriber // nil when not configured
	media       attachmentArchive      // nil when not configured
	lookups     *cache.Lookups         // nil when not configured
	search      searchService          // nil when not configured
}

func New(cfg config.Config, dataStore dataStore, auth *authpw.Service) *Service {
	return &Service{cfg: cfg, store: dataStore, auth: auth}
}

// WithTranscriber attaches the best-effort voice transcription collaborator.
func (s *Service) WithTranscriber(t transcribe.Transcriber) *Service {
	s.transcriber = t
	return s
}

// WithMedia attaches the attachment archive.
func (s *Service) WithMedia(m attachmentArchive) *Service {
	s.media = m
	return s
}

// WithLookupCache attaches the Redis enrichment cache.
func (s *Service) WithLookupCache(l *cache.Lookups) *Service {
	s.lookups = l
	return s
}

// WithSearch attaches the issue search service.
func (s *Service) WithSearch(ss searchService) *Service {
	s.search = ss
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ── Result shapes ──
// Explicit structs instead of ad-hoc maps so every endpoint has a
// compile-time response shape. Field names match the mobile client's
// snake_case wire format.

type UserResult struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type CategoryResult struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Icon        *string `json:"icon,omitempty"`
}

type IssueResult struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	CategoryID         string     `json:"category_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Image              *string    `json:"image,omitempty"`
	Voice              *string    `json:"voice,omitempty"`
	VoiceTranscript    *string    `json:"voice_transcript,omitempty"`
	LocationLat        float64    `json:"location_lat"`
	LocationLong       float64    `json:"location_long"`
	Address            *string    `json:"address,omitempty"`
	Status             string     `json:"status"`
	ExpectedCompletion *time.Time `json:"expected_completion,omitempty"`
	ActualCompletion   *time.Time `json:"actual_completion,omitempty"`
	VoteCount          int        `json:"vote_count"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IssueWithContext is an issue enriched with human-readable author and
// category fields. Enrichment is best-effort: a dangling user_id or
// category_id leaves the fields empty rather than failing the request.
type IssueWithContext struct {
	IssueResult
	UserName     string `json:"user_name,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
	CategoryIcon string `json:"category_icon,omitempty"`
}

type CommentResult struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issue_id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type CommentWithAuthor struct {
	CommentResult
	UserName string `json:"user_name,omitempty"`
}

func userResult(user store.User) UserResult {
	return UserResult{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

func categoryResult(item store.Category) CategoryResult {
	return CategoryResult{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Icon:        item.Icon,
	}
}

func issueResult(item store.Issue) IssueResult {
	return IssueResult{
		ID:                 item.ID,
		UserID:             item.UserID,
		CategoryID:         item.CategoryID,
		Title:              item.Title,
		Description:        item.Description,
		Image:              item.Image,
		Voice:              item.Voice,
		VoiceTranscript:    item.VoiceTranscript,
		LocationLat:        item.LocationLat,
		LocationLong:       item.LocationLong,
		Address:            item.Address,
		Status:             item.Status,
		ExpectedCompletion: item.ExpectedCompletion,
		ActualCompletion:   item.ActualCompletion,
		VoteCount:          item.VoteCount,
		CreatedAt:          item.CreatedAt,
		UpdatedAt:          item.UpdatedAt,
	}
}

func commentResult(item store.Comment) CommentResult {
	return CommentResult{
		ID:        item.ID,
		IssueID:   item.IssueID,
		UserID:    item.UserID,
		Message:   item.Message,
		CreatedAt: item.CreatedAt,
	}
}

// ── Users ──

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (UserResult, error) {
	user, err := s.auth.Register(ctx, authpw.RegisterRequest{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Phone:    input.Phone,
	})
	if err != nil {
		if errors.Is(err, authpw.ErrEmailExists) {
			return UserResult{}, domainError(http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
		}
		return UserResult{}, err
	}
	s.lookups.SetUserName(ctx, user.ID, user.Name)
	return userResult(user), nil
}

func (s *Service) Login(ctx context.Context, email, password string) (UserResult, error) {
	user, err := s.auth.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			return UserResult{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil)
		}
		return UserResult{}, err
	}
	return userResult(user), nil
}

// ── Categories ──

type seedCategory struct {
	name        string
	description string
	icon        string
}

var defaultCategories = []seedCategory{
	{"Roads & Transportation", "Potholes, traffic issues, road repairs", "car"},
	{"Water & Sanitation", "Water leaks, drainage, sewage", "water-drop"},
	{"Electricity", "Power outages, street lights, electrical issues", "flash"},
	{"Waste Management", "Garbage collection, littering, recycling", "trash"},
	{"Public Safety", "Security, crime, emergency services", "shield"},
	{"Parks & Recreation", "Parks maintenance, recreational facilities", "leaf"},
	{"Other", "Other civic issues", "help-circle"},
}

func (s *Service) ListCategories(ctx context.Context) ([]CategoryResult, error) {
	items, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]CategoryResult, 0, len(items))
	for _, item := range items {
		results = append(results, categoryResult(item))
	}
	return results, nil
}

// ResetCategories replaces whatever is in the taxonomy with the fixed seed
// set. Safe to call repeatedly.
func (s *Service) ResetCategories(ctx context.Context) error {
	previous, err := s.store.ListCategories(ctx)
	if err != nil {
		return err
	}

	categories := make([]store.Category, 0, len(defaultCategories))
	for _, seed := range defaultCategories {
		icon := seed.icon
		categories = append(categories, store.Category{
			ID:          util.NewID("cat"),
			Name:        seed.name,
			Description: seed.description,
			Icon:        &icon,
		})
	}
	if err := s.store.ResetCategories(ctx, categories); err != nil {
		return err
	}

	staleIDs := make([]string, 0, len(previous))
	for _, item := range previous {
		staleIDs = append(staleIDs, item.ID)
	}
	s.lookups.Invalidate(ctx, staleIDs)
	return nil
}

// ── Issues ──

type CreateIssueInput struct {
	UserID       string  `json:"user_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	CategoryID   string  `json:"category_id"`
	LocationLat  float64 `json:"location_lat"`
	LocationLong float64 `json:"location_long"`
	Address      *string `json:"address"`
	Image        *string `json:"image"`
	Voice        *string `json:"voice"`
}

// CreateIssue persists a new report. user_id and category_id are taken as
// given without referential checks, matching the mobile client's contract.
func (s *Service) CreateIssue(ctx context.Context, input CreateIssueInput) (IssueResult, error) {
	now := time.Now().UTC()
	item := store.Issue{
		ID:           util.NewID("iss"),
		UserID:       input.UserID,
		CategoryID:   input.CategoryID,
		Title:        input.Title,
		Description:  input.Description,
		Image:        input.Image,
		Voice:        input.Voice,
		LocationLat:  input.LocationLat,
		LocationLong: input.LocationLong,
		Address:      input.Address,
		Status:       "pending",
		VoteCount:    0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if input.Voice != nil && *input.Voice != "" {
		transcript := s.transcribeVoice(ctx, *input.Voice)
		item.VoiceTranscript = &transcript
	}

	if err := s.store.InsertIssue(ctx, item); err != nil {
		return IssueResult{}, err
	}

	if s.media != nil {
		go s.media.StoreIssueAttachments(context.Background(), item.ID, item.Image, item.Voice)
	}
	if s.search != nil {
		s.search.IndexIssue(search.IssueRecord{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			Address:     stringOrEmpty(item.Address),
			CategoryID:  item.CategoryID,
			Status:      item.Status,
		})
	}

	return issueResult(item), nil
}

// transcribeVoice never fails: any transcription error degrades to the fixed
// fallback string so the report itself still lands.
func (s *Service) transcribeVoice(ctx context.Context, voiceBase64 string) string {
	if s.transcriber == nil {
		return transcribe.FallbackTranscript
	}
	text, err := s.transcriber.Transcribe(ctx, voiceBase64)
	if err != nil {
		return transcribe.FallbackTranscript
	}
	return text
}

type ListIssuesInput struct {
	Lat        *float64
	Lng        *float64
	Radius     *float64 // accepted, unused in the filter math
	CategoryID string
	Limit      int
}

func (s *Service) ListIssues(ctx context.Context, input ListIssuesInput) ([]IssueWithContext, error) {
	filter := store.IssueFilter{
		CategoryID: input.CategoryID,
		Limit:      input.Limit,
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if input.Lat != nil && input.Lng != nil {
		filter.HasBounds = true
		filter.LatMin = *input.Lat - locationBoxDegrees
		filter.LatMax = *input.Lat + locationBoxDegrees
		filter.LngMin = *input.Lng - locationBoxDegrees
		filter.LngMax = *input.Lng + locationBoxDegrees
	}

	items, err := s.store.ListIssues(ctx, filter)
	if err != nil {
		return nil, err
	}

	results := make([]IssueWithContext, 0, len(items))
	for _, item := range items {
		results = append(results, s.enrichIssue(ctx, item))
	}
	return results, nil
}

func (s *Service) GetIssue(ctx context.Context, issueID string) (IssueWithContext, error) {
	item, err := s.store.GetIssue(ctx, issueID)
	if err != nil {
		if store.IsNotFound(err) {
			return IssueWithContext{}, domainError(http.StatusNotFound, "NOT_FOUND", "Issue not found", nil)
		}
		return IssueWithContext{}, fmt.Errorf("get issue: %w", err)
	}
	return s.enrichIssue(ctx, item), nil
}

func (s *Service) enrichIssue(ctx context.Context, item store.Issue) IssueWithContext {
	enriched := IssueWithContext{IssueResult: issueResult(item)}
	if name, ok := s.userName(ctx, item.UserID); ok {
		enriched.UserName = name
	}
	if info, ok := s.categoryInfo(ctx, item.CategoryID); ok {
		enriched.CategoryName = info.Name
		enriched.CategoryIcon = info.Icon
	}
	return enriched
}

// userName resolves a display name, cache first.
func (s *Service) userName(ctx context.Context, userID string) (string, bool) {
	if name, ok := s.lookups.UserName(ctx, userID); ok {
		return name, true
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return "", false
	}
	s.lookups.SetUserName(ctx, userID, user.Name)
	return user.Name, true
}

// categoryInfo resolves a category name/icon, cache first. Icon falls back to
// "help-circle" for categories seeded without one.
func (s *Service) categoryInfo(ctx context.Context, categoryID string) (cache.CategoryInfo, bool) {
	if info, ok := s.lookups.Category(ctx, categoryID); ok {
		return info, true
	}
	item, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return cache.CategoryInfo{}, false
	}
	info := cache.CategoryInfo{Name: item.Name, Icon: "help-circle"}
	if item.Icon != nil && *item.Icon != "" {
		info.Icon = *item.Icon
	}
	s.lookups.SetCategory(ctx, categoryID, info)
	return info, true
}

// SearchIssues runs full-text search over issue reports.
func (s *Service) SearchIssues(q, categoryID string, limit int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q}
	}
	return s.search.Search(search.Query{Text: q, CategoryID: categoryID, Limit: limit})
}

// ── Votes ──

// ToggleVote flips the caller's vote on an issue and reports the new state.
// The store keeps the vote row and the denormalized counter in step.
func (s *Service) ToggleVote(ctx context.Context, issueID, userID string) (bool, error) {
	return s.store.ToggleVote(ctx, util.NewID("vote"), issueID, userID)
}

// ── Comments ──

func (s *Service) AddComment(ctx context.Context, issueID, userID, message string) (CommentResult, error) {
	if message == "" {
		return CommentResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "message is required", nil)
	}
	item := store.Comment{
		ID:        util.NewID("cmt"),
		IssueID:   issueID,
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertComment(ctx, item); err != nil {
		return CommentResult{}, err
	}
	return commentResult(item), nil
}

// ListComments returns an issue's comments newest first. An unknown issue id
// yields an empty list, not an error.
func (s *Service) ListComments(ctx context.Context, issueID string) ([]CommentWithAuthor, error) {
	items, err := s.store.ListComments(ctx, issueID)
	if err != nil {
		return nil, err
	}
	results := make([]CommentWithAuthor, 0, len(items))
	for _, item := range items {
		enriched := CommentWithAuthor{CommentResult: commentResult(item)}
		if name, ok := s.userName(ctx, item.UserID); ok {
			enriched.UserName = name
		}
		results = append(results, enriched)
	}
	return results, nil
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
