package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/property-listings/internal/model"
	"github.com/iliyamo/property-listings/internal/policy"
	"github.com/iliyamo/property-listings/internal/repository"
)

// PropertyStore persists listings. *repository.PropertyRepo satisfies it.
type PropertyStore interface {
	List(ctx context.Context, f model.PropertyFilter) ([]*model.Property, error)
	GetByID(ctx context.Context, id string) (*model.Property, error)
	Create(ctx context.Context, p *model.Property) error
	Update(ctx context.Context, p *model.Property, replaceImages bool) error
	Delete(ctx context.Context, id string) error
}

// CachePurger drops cached listing responses after a write.
type CachePurger interface {
	Purge(ctx context.Context)
}

type noopPurger struct{}

func (noopPurger) Purge(context.Context) {}

// Known listing types and operations.
var (
	PropertyTypes      = []string{"House", "Apartment", "Land", "Office", "Commercial"}
	PropertyOperations = []string{"Sale", "Rent"}
)

// DefaultOperation applies when a write leaves operation empty.
const DefaultOperation = "Sale"

// Column limits of the properties and property_images tables.
const (
	MaxTextLen        = 255
	MaxURLLen         = 2048
	MaxAreaLen        = 64
	MaxDescriptionLen = 65535 // bytes, TEXT
	MaxPrice          = 999999999999.99
	MaxRooms          = math.MaxInt32
)

// PropertyInput is the raw listing data of a create or update. Numeric
// fields arrive as text and are parsed here. Images nil keeps the stored
// gallery on update; a non-nil slice replaces it entirely.
type PropertyInput struct {
	Title            string
	Price            string
	Location         string
	Image            string
	Type             string
	Bedrooms         string
	Bathrooms        string
	Operation        string
	Description      string
	Furnished        bool
	ConstructionArea *string
	LandArea         *string
	Images           *[]string
}

// PropertyService manages listings and their galleries.
type PropertyService struct {
	store  PropertyStore
	images *ImageURLValidator
	cache  CachePurger
	log    *zap.Logger
	now    func() time.Time
}

func NewPropertyService(store PropertyStore, images *ImageURLValidator, cache CachePurger, log *zap.Logger) *PropertyService {
	if cache == nil {
		cache = noopPurger{}
	}
	return &PropertyService{
		store:  store,
		images: images,
		cache:  cache,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns listings matching f, newest first. It is public.
func (s *PropertyService) List(ctx context.Context, f model.PropertyFilter) ([]*model.Property, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return []*model.Property{}, nil
	}
	props, err := s.store.List(ctx, f)
	if err != nil {
		return nil, upstream("list properties", err)
	}
	return props, nil
}

// Get returns one listing. It is public.
func (s *PropertyService) Get(ctx context.Context, id string) (*model.Property, error) {
	p, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, upstream("get property", err)
	}
	return p, nil
}

// Create stores a new listing owned by who.
func (s *PropertyService) Create(ctx context.Context, who *model.Identity, in PropertyInput) (*model.Property, error) {
	if err := authorize(who, policy.CreateListing, policy.Resource{}); err != nil {
		return nil, err
	}
	now := s.now()
	p := &model.Property{ID: uuid.NewString(), OwnerID: who.ID, CreatedAt: now, UpdatedAt: now}
	if err := s.apply(p, in); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, upstream("create property", err)
	}
	s.cache.Purge(ctx)
	s.log.Info("property created", zap.String("property_id", p.ID), zap.String("owner_id", p.OwnerID))
	return p, nil
}

// Update rewrites listing id. Agents may only update their own listings.
func (s *PropertyService) Update(ctx context.Context, who *model.Identity, id string, in PropertyInput) (*model.Property, error) {
	// Callers that could not update even their own listing stop here.
	if err := authorize(who, policy.UpdateListing, ownedBy(who)); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(who, policy.UpdateListing, policy.Resource{OwnerID: current.OwnerID}); err != nil {
		return nil, err
	}

	p := *current
	p.UpdatedAt = s.now()
	if err := s.apply(&p, in); err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, &p, in.Images != nil)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, upstream("update property", err)
	}
	s.cache.Purge(ctx)
	s.log.Info("property updated", zap.String("property_id", p.ID))
	return &p, nil
}

// Delete removes listing id and its gallery.
func (s *PropertyService) Delete(ctx context.Context, who *model.Identity, id string) error {
	if err := authorize(who, policy.DeleteListing, ownedBy(who)); err != nil {
		return err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(who, policy.DeleteListing, policy.Resource{OwnerID: current.OwnerID}); err != nil {
		return err
	}
	err = s.store.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return upstream("delete property", err)
	}
	s.cache.Purge(ctx)
	s.log.Info("property deleted", zap.String("property_id", id))
	return nil
}

// apply validates in and copies it onto p. Nothing is written to p unless
// every field, including every image URL, is valid.
func (s *PropertyService) apply(p *model.Property, in PropertyInput) error {
	title := strings.TrimSpace(in.Title)
	location := strings.TrimSpace(in.Location)
	image := strings.TrimSpace(in.Image)
	typ := strings.TrimSpace(in.Type)
	description := strings.TrimSpace(in.Description)
	for _, f := range []struct{ name, val string }{
		{"title", title},
		{"price", strings.TrimSpace(in.Price)},
		{"location", location},
		{"image", image},
		{"type", typ},
		{"description", description},
	} {
		if f.val == "" {
			return invalid(f.name, f.name+" is required.")
		}
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(in.Price), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return invalid("price", "price must be a number.")
	}
	if price < 0 {
		return invalid("price", "price must not be negative.")
	}
	if price > MaxPrice {
		return invalid("price", "price is too large.")
	}
	for _, f := range []struct {
		name, val string
		max       int
	}{
		{"title", title, MaxTextLen},
		{"location", location, MaxTextLen},
		{"image", image, MaxURLLen},
	} {
		if utf8.RuneCountInString(f.val) > f.max {
			return invalid(f.name, f.name+" is too long.")
		}
	}
	if len(description) > MaxDescriptionLen {
		return invalid("description", "description is too long.")
	}
	constructionArea := trimmedOrNil(in.ConstructionArea)
	landArea := trimmedOrNil(in.LandArea)
	for _, f := range []struct {
		name string
		val  *string
	}{{"constructionArea", constructionArea}, {"landArea", landArea}} {
		if f.val != nil && utf8.RuneCountInString(*f.val) > MaxAreaLen {
			return invalid(f.name, f.name+" is too long.")
		}
	}
	if !oneOf(typ, PropertyTypes) {
		return invalid("type", "type must be one of: "+strings.Join(PropertyTypes, ", ")+".")
	}
	operation := strings.TrimSpace(in.Operation)
	if operation == "" {
		operation = DefaultOperation
	}
	if !oneOf(operation, PropertyOperations) {
		return invalid("operation", "operation must be one of: "+strings.Join(PropertyOperations, ", ")+".")
	}
	bedrooms, err := optionalInt("bedrooms", in.Bedrooms)
	if err != nil {
		return err
	}
	bathrooms, err := optionalInt("bathrooms", in.Bathrooms)
	if err != nil {
		return err
	}

	if !s.images.IsValid(image) {
		return ErrInvalidImageURL
	}
	var gallery []model.PropertyImage
	if in.Images != nil {
		gallery = make([]model.PropertyImage, 0, len(*in.Images))
		for i, raw := range *in.Images {
			u := strings.TrimSpace(raw)
			if utf8.RuneCountInString(u) > MaxURLLen {
				return invalid("images", "image URLs must be at most 2048 characters.")
			}
			if !s.images.IsValid(u) {
				return ErrInvalidImageURL
			}
			gallery = append(gallery, model.PropertyImage{ID: uuid.NewString(), URL: u, PropertyID: p.ID, Position: i})
		}
	}

	p.Title = title
	p.Price = price
	p.Location = location
	p.Image = image
	p.Type = typ
	p.Bedrooms = bedrooms
	p.Bathrooms = bathrooms
	p.Operation = operation
	p.Description = description
	p.Furnished = in.Furnished
	p.ConstructionArea = constructionArea
	p.LandArea = landArea
	if in.Images != nil {
		p.Images = gallery
	} else if p.Images == nil {
		p.Images = []model.PropertyImage{}
	}
	return nil
}

func ownedBy(who *model.Identity) policy.Resource {
	if who == nil {
		return policy.Resource{}
	}
	return policy.Resource{OwnerID: who.ID}
}

func optionalInt(field, raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, invalid(field, field+" must be a whole number.")
	}
	if n < 0 {
		return nil, invalid(field, field+" must not be negative.")
	}
	if n > MaxRooms {
		return nil, invalid(field, field+" is too large.")
	}
	return &n, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}
