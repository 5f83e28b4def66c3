package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/property-listings/internal/model"
)

var (
	agent      = &model.Identity{ID: "agent-1", Role: model.RoleAgent}
	otherAgent = &model.Identity{ID: "agent-2", Role: model.RoleAgent}
	admin      = &model.Identity{ID: "admin-1", Role: model.RoleAdmin}
	client     = &model.Identity{ID: "client-1", Role: model.RoleClient}
)

func newPropertyFixture() (*PropertyService, *memProperties, *countingPurger) {
	store := newMemProperties()
	purger := &countingPurger{}
	v := NewImageURLValidator([]string{"images.unsplash.com", "placehold.co"})
	return NewPropertyService(store, v, purger, zap.NewNop()), store, purger
}

func validInput() PropertyInput {
	gallery := []string{"https://placehold.co/1.png", "https://placehold.co/2.png"}
	return PropertyInput{
		Title:       "Casa Centro",
		Price:       "185000",
		Location:    "Mérida Centro",
		Image:       "https://images.unsplash.com/cover.jpg",
		Type:        "House",
		Bedrooms:    "3",
		Bathrooms:   "2",
		Operation:   "Sale",
		Description: "Colonial house",
		Images:      &gallery,
	}
}

func TestCreateProperty(t *testing.T) {
	svc, store, purger := newPropertyFixture()
	p, err := svc.Create(context.Background(), agent, validInput())
	require.NoError(t, err)
	require.Equal(t, agent.ID, p.OwnerID)
	require.Equal(t, 185000.0, p.Price)
	require.Equal(t, 3, *p.Bedrooms)
	require.Len(t, p.Images, 2)
	require.Equal(t, 1, p.Images[1].Position)
	require.Equal(t, p.ID, p.Images[0].PropertyID)
	require.Equal(t, 1, purger.n)
	require.Len(t, store.byID, 1)
}

func TestCreatePropertyAuthorization(t *testing.T) {
	svc, store, _ := newPropertyFixture()
	_, err := svc.Create(context.Background(), nil, validInput())
	require.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Create(context.Background(), client, validInput())
	require.ErrorIs(t, err, ErrForbidden)
	require.Zero(t, store.calls)
}

func TestCreatePropertyValidation(t *testing.T) {
	cases := map[string]func(in *PropertyInput){
		"missing title":       func(in *PropertyInput) { in.Title = " " },
		"missing price":       func(in *PropertyInput) { in.Price = "" },
		"missing location":    func(in *PropertyInput) { in.Location = "" },
		"missing image":       func(in *PropertyInput) { in.Image = "" },
		"missing type":        func(in *PropertyInput) { in.Type = "" },
		"missing description": func(in *PropertyInput) { in.Description = "" },
		"price not number":    func(in *PropertyInput) { in.Price = "cheap" },
		"negative price":      func(in *PropertyInput) { in.Price = "-1" },
		"bedrooms fraction":   func(in *PropertyInput) { in.Bedrooms = "2.5" },
		"unknown type":        func(in *PropertyInput) { in.Type = "Castle" },
		"unknown operation":   func(in *PropertyInput) { in.Operation = "Lease" },
		"price too large":     func(in *PropertyInput) { in.Price = "1e15" },
		"bedrooms too large":  func(in *PropertyInput) { in.Bedrooms = "3000000000" },
		"title too long":      func(in *PropertyInput) { in.Title = strings.Repeat("t", MaxTextLen+1) },
		"location too long":   func(in *PropertyInput) { in.Location = strings.Repeat("é", MaxTextLen+1) },
		"image too long": func(in *PropertyInput) {
			in.Image = "https://placehold.co/" + strings.Repeat("a", MaxURLLen)
		},
		"land area too long": func(in *PropertyInput) {
			area := strings.Repeat("9", MaxAreaLen+1)
			in.LandArea = &area
		},
		"construction area too long": func(in *PropertyInput) {
			area := strings.Repeat("9", MaxAreaLen+1)
			in.ConstructionArea = &area
		},
		"gallery url too long": func(in *PropertyInput) {
			gallery := []string{"https://placehold.co/" + strings.Repeat("a", MaxURLLen)}
			in.Images = &gallery
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			svc, store, _ := newPropertyFixture()
			in := validInput()
			mutate(&in)
			_, err := svc.Create(context.Background(), agent, in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Zero(t, store.calls)
		})
	}
}

func TestCreatePropertyAtColumnLimits(t *testing.T) {
	svc, _, _ := newPropertyFixture()
	in := validInput()
	in.Price = "999999999999.99"
	in.Title = strings.Repeat("é", MaxTextLen)
	area := strings.Repeat("9", MaxAreaLen)
	in.LandArea = &area
	p, err := svc.Create(context.Background(), agent, in)
	require.NoError(t, err)
	require.Equal(t, area, *p.LandArea)
}

func TestCreatePropertyValidationNamesField(t *testing.T) {
	svc, _, _ := newPropertyFixture()
	in := validInput()
	area := strings.Repeat("9", MaxAreaLen+1)
	in.LandArea = &area
	_, err := svc.Create(context.Background(), agent, in)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "landArea", ve.Field)

	in = validInput()
	in.Price = "1e15"
	_, err = svc.Create(context.Background(), agent, in)
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "price", ve.Field)
}

func TestCreatePropertyDefaultsAndOptionals(t *testing.T) {
	svc, _, _ := newPropertyFixture()
	in := validInput()
	in.Operation = ""
	in.Bedrooms = ""
	in.Bathrooms = " "
	in.Images = nil
	blank := "  "
	in.LandArea = &blank
	p, err := svc.Create(context.Background(), agent, in)
	require.NoError(t, err)
	require.Equal(t, DefaultOperation, p.Operation)
	require.Nil(t, p.Bedrooms)
	require.Nil(t, p.Bathrooms)
	require.Nil(t, p.LandArea)
	require.NotNil(t, p.Images)
	require.Empty(t, p.Images)
}

func TestInvalidImageRejectsWholeWrite(t *testing.T) {
	svc, store, purger := newPropertyFixture()

	in := validInput()
	in.Image = "http://images.unsplash.com/cover.jpg"
	_, err := svc.Create(context.Background(), agent, in)
	require.ErrorIs(t, err, ErrInvalidImageURL)

	in = validInput()
	bad := []string{"https://placehold.co/ok.png", "https://evil.example/x.png"}
	in.Images = &bad
	_, err = svc.Create(context.Background(), agent, in)
	require.ErrorIs(t, err, ErrInvalidImageURL)

	require.Zero(t, store.calls)
	require.Zero(t, purger.n)

	p, err := svc.Create(context.Background(), agent, validInput())
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), agent, p.ID, in)
	require.ErrorIs(t, err, ErrInvalidImageURL)
	stored, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, "Casa Centro", stored.Title)
	require.Len(t, stored.Images, 2)
}

func TestUpdateOwnership(t *testing.T) {
	svc, _, _ := newPropertyFixture()
	ctx := context.Background()
	p, err := svc.Create(ctx, agent, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Title = "Renamed"
	_, err = svc.Update(ctx, otherAgent, p.ID, in)
	require.ErrorIs(t, err, ErrForbidden)
	require.ErrorIs(t, svc.Delete(ctx, otherAgent, p.ID), ErrForbidden)
	_, err = svc.Update(ctx, client, p.ID, in)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Update(ctx, nil, p.ID, in)
	require.ErrorIs(t, err, ErrUnauthenticated)

	got, err := svc.Update(ctx, agent, p.ID, in)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Title)
	require.Equal(t, agent.ID, got.OwnerID)

	in.Title = "By admin"
	got, err = svc.Update(ctx, admin, p.ID, in)
	require.NoError(t, err)
	require.Equal(t, "By admin", got.Title)
	require.Equal(t, agent.ID, got.OwnerID, "admin edits keep the original owner")
}

func TestUpdateGalleryReplacement(t *testing.T) {
	svc, _, _ := newPropertyFixture()
	ctx := context.Background()
	p, err := svc.Create(ctx, agent, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Images = nil
	got, err := svc.Update(ctx, agent, p.ID, in)
	require.NoError(t, err)
	require.Len(t, got.Images, 2, "omitted images keep the gallery")

	replacement := []string{"https://placehold.co/new.png"}
	in.Images = &replacement
	_, err = svc.Update(ctx, agent, p.ID, in)
	require.NoError(t, err)
	stored, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored.Images, 1)
	require.Equal(t, "https://placehold.co/new.png", stored.Images[0].URL)

	empty := []string{}
	in.Images = &empty
	_, err = svc.Update(ctx, agent, p.ID, in)
	require.NoError(t, err)
	stored, err = svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, stored.Images)
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	svc, _, _ := newPropertyFixture()
	_, err := svc.Update(context.Background(), admin, "missing", validInput())
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(context.Background(), admin, "missing"), ErrNotFound)
}

func TestDeleteProperty(t *testing.T) {
	svc, store, purger := newPropertyFixture()
	ctx := context.Background()
	p, err := svc.Create(ctx, agent, validInput())
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, nil, p.ID), ErrUnauthenticated)
	require.NoError(t, svc.Delete(ctx, admin, p.ID))
	require.Empty(t, store.byID)
	require.Equal(t, 2, purger.n)
	_, err = svc.Get(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListFilters(t *testing.T) {
	svc, store, _ := newPropertyFixture()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, tc := range []struct{ typ, price string }{
		{"House", "90000"},
		{"House", "150000"},
		{"Apartment", "200000"},
		{"House", "300000"},
	} {
		in := validInput()
		in.Type, in.Price = tc.typ, tc.price
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		_, err := svc.Create(ctx, agent, in)
		require.NoError(t, err)
	}
	require.Len(t, store.byID, 4)

	all, err := svc.List(ctx, model.PropertyFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, 300000.0, all[0].Price, "newest first")

	lo := 100000.0
	houses, err := svc.List(ctx, model.PropertyFilter{MinPrice: &lo, Type: "House"})
	require.NoError(t, err)
	require.Len(t, houses, 2)
	for _, p := range houses {
		require.Equal(t, "House", p.Type)
		require.GreaterOrEqual(t, p.Price, lo)
	}

	hi := 50000.0
	none, err := svc.List(ctx, model.PropertyFilter{MinPrice: &lo, MaxPrice: &hi})
	require.NoError(t, err)
	require.Empty(t, none)
}
