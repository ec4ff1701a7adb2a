package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotFound means the requested catalog record does not exist.
var ErrNotFound = errors.New("not found")

// CatalogService manages playlist groups, browse filters, and learning
// videos. Reads are public; premium groups have their playlist entries
// withheld for callers without an entitlement.
type CatalogService interface {
	ListGroups(ctx context.Context, tag, userID string) ([]model.PlaylistGroup, error)
	GetGroup(ctx context.Context, id, userID string) (*model.PlaylistGroup, error)
	CreateGroup(ctx context.Context, g *model.PlaylistGroup) error
	UpdateGroup(ctx context.Context, g *model.PlaylistGroup) error
	DeleteGroup(ctx context.Context, id string) error
	ThumbnailUploadURL(ctx context.Context, filename string) (key string, url string, err error)

	ListFilters(ctx context.Context) ([]model.Filter, error)
	CreateFilter(ctx context.Context, f *model.Filter) error
	DeleteFilter(ctx context.Context, id string) error
	ResetFilters(ctx context.Context) ([]model.Filter, error)

	ListVideos(ctx context.Context) ([]model.LearnVideo, error)
	CreateVideo(ctx context.Context, v *model.LearnVideo) error
	UpdateVideo(ctx context.Context, v *model.LearnVideo) error
	DeleteVideo(ctx context.Context, id string) error
}

type catalogService struct {
	playlists     repository.PlaylistRepository
	filters       repository.FilterRepository
	videos        repository.LearnRepository
	subSvc        SubscriptionService
	presignClient *s3.PresignClient
	bucketName    string
	logger        zerolog.Logger
}

// NewCatalogService creates a new CatalogService with a scoped logger.
func NewCatalogService(
	playlists repository.PlaylistRepository,
	filters repository.FilterRepository,
	videos repository.LearnRepository,
	subSvc SubscriptionService,
	s3Client *s3.Client,
	bucketName string,
	logger zerolog.Logger,
) CatalogService {
	var presign *s3.PresignClient
	if s3Client != nil {
		presign = s3.NewPresignClient(s3Client)
	}
	return &catalogService{
		playlists:     playlists,
		filters:       filters,
		videos:        videos,
		subSvc:        subSvc,
		presignClient: presign,
		bucketName:    bucketName,
		logger:        logger.With().Str("service", "CatalogService").Logger(),
	}
}

// defaultFilters are the browse filters the reset operation restores.
var defaultFilters = []model.Filter{
	{Category: "Genre", Tag: "lofi"},
	{Category: "Genre", Tag: "jazz"},
	{Category: "Genre", Tag: "classical"},
	{Category: "Mood", Tag: "focus"},
	{Category: "Mood", Tag: "chill"},
	{Category: "Activity", Tag: "study"},
	{Category: "Activity", Tag: "sleep"},
}

// lockGroup strips the playlist entries from a premium group so the caller
// sees the listing but not the content.
func lockGroup(g *model.PlaylistGroup) {
	g.Playlists = nil
}

// entitled reports whether the given user may see premium content. An empty
// user id is an anonymous caller.
func (s *catalogService) entitled(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}
	_, ok, err := s.subSvc.Entitlement(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Entitlement check failed, treating as not entitled")
		return false
	}
	return ok
}

func (s *catalogService) ListGroups(ctx context.Context, tag, userID string) ([]model.PlaylistGroup, error) {
	groups, err := s.playlists.ListGroups(ctx, tag)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list playlist groups")
		return nil, err
	}
	hasPremium := false
	for _, g := range groups {
		if g.Access == model.AccessPremium {
			hasPremium = true
			break
		}
	}
	if hasPremium && !s.entitled(ctx, userID) {
		for i := range groups {
			if groups[i].Access == model.AccessPremium {
				lockGroup(&groups[i])
			}
		}
	}
	return groups, nil
}

func (s *catalogService) GetGroup(ctx context.Context, id, userID string) (*model.PlaylistGroup, error) {
	g, err := s.playlists.GetGroupByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("group_id", id).Msg("Failed to fetch playlist group")
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	if g.Access == model.AccessPremium && !s.entitled(ctx, userID) {
		lockGroup(g)
	}
	return g, nil
}

func (s *catalogService) CreateGroup(ctx context.Context, g *model.PlaylistGroup) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Access == "" {
		g.Access = model.AccessFree
	}
	if err := s.playlists.CreateGroup(ctx, g); err != nil {
		s.logger.Error().Err(err).Str("creator", g.Creator).Msg("Failed to create playlist group")
		return err
	}
	return nil
}

func (s *catalogService) UpdateGroup(ctx context.Context, g *model.PlaylistGroup) error {
	existing, err := s.playlists.GetGroupByID(ctx, g.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}
	if err := s.playlists.UpdateGroup(ctx, g); err != nil {
		s.logger.Error().Err(err).Str("group_id", g.ID).Msg("Failed to update playlist group")
		return err
	}
	return nil
}

func (s *catalogService) DeleteGroup(ctx context.Context, id string) error {
	if err := s.playlists.DeleteGroup(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("group_id", id).Msg("Failed to delete playlist group")
		return err
	}
	return nil
}

// ThumbnailUploadURL generates a presigned PUT URL for a thumbnail object.
// The object key keeps the original extension so content type negotiation
// still works on the way back out.
func (s *catalogService) ThumbnailUploadURL(ctx context.Context, filename string) (string, string, error) {
	if s.presignClient == nil {
		return "", "", fmt.Errorf("thumbnail storage not configured")
	}
	key := fmt.Sprintf("thumbnails/%s%s", uuid.NewString(), path.Ext(filename))
	request, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		s.logger.Error().Err(err).Str("object_key", key).Msg("Failed to generate presigned PUT URL")
		return "", "", fmt.Errorf("failed to generate presigned PUT URL: %w", err)
	}
	return key, request.URL, nil
}

func (s *catalogService) ListFilters(ctx context.Context) ([]model.Filter, error) {
	filters, err := s.filters.ListFilters(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list filters")
		return nil, err
	}
	return filters, nil
}

func (s *catalogService) CreateFilter(ctx context.Context, f *model.Filter) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if err := s.filters.CreateFilter(ctx, f); err != nil {
		s.logger.Error().Err(err).Str("category", f.Category).Str("tag", f.Tag).Msg("Failed to create filter")
		return err
	}
	return nil
}

func (s *catalogService) DeleteFilter(ctx context.Context, id string) error {
	if err := s.filters.DeleteFilter(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("filter_id", id).Msg("Failed to delete filter")
		return err
	}
	return nil
}

// ResetFilters replaces all filters with the default set and returns it.
func (s *catalogService) ResetFilters(ctx context.Context) ([]model.Filter, error) {
	defaults := make([]model.Filter, len(defaultFilters))
	for i, f := range defaultFilters {
		f.ID = uuid.NewString()
		defaults[i] = f
	}
	if err := s.filters.ReplaceFilters(ctx, defaults); err != nil {
		s.logger.Error().Err(err).Msg("Failed to reset filters")
		return nil, err
	}
	return defaults, nil
}

func (s *catalogService) ListVideos(ctx context.Context) ([]model.LearnVideo, error) {
	videos, err := s.videos.ListVideos(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list learn videos")
		return nil, err
	}
	return videos, nil
}

func (s *catalogService) CreateVideo(ctx context.Context, v *model.LearnVideo) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if err := s.videos.CreateVideo(ctx, v); err != nil {
		s.logger.Error().Err(err).Str("title", v.Title).Msg("Failed to create learn video")
		return err
	}
	return nil
}

func (s *catalogService) UpdateVideo(ctx context.Context, v *model.LearnVideo) error {
	if err := s.videos.UpdateVideo(ctx, v); err != nil {
		s.logger.Error().Err(err).Str("video_id", v.ID).Msg("Failed to update learn video")
		return err
	}
	return nil
}

func (s *catalogService) DeleteVideo(ctx context.Context, id string) error {
	if err := s.videos.DeleteVideo(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("video_id", id).Msg("Failed to delete learn video")
		return err
	}
	return nil
}
