package model

import "time"

// Property is a real-estate listing stored in the `properties` table.
// Every listing belongs to the AGENT or ADMIN that created it.
type Property struct {
    ID               string          `json:"id"`
    Title            string          `json:"title"`
    Price            float64         `json:"price"`
    Location         string          `json:"location"`
    Image            string          `json:"image"`
    Type             string          `json:"type"`
    Bedrooms         *int            `json:"bedrooms"`
    Bathrooms        *int            `json:"bathrooms"`
    Operation        string          `json:"operation"`
    Description      string          `json:"description"`
    Furnished        bool            `json:"furnished"`
    ConstructionArea *string         `json:"constructionArea"`
    LandArea         *string         `json:"landArea"`
    OwnerID          string          `json:"ownerId"`
    Images           []PropertyImage `json:"images"`
    CreatedAt        time.Time       `json:"createdAt"`
    UpdatedAt        time.Time       `json:"updatedAt"`
}

// PropertyImage is one gallery entry of a property. Position keeps the
// order in which the gallery was supplied.
type PropertyImage struct {
    ID         string `json:"id"`
    URL        string `json:"url"`
    PropertyID string `json:"propertyId"`
    Position   int    `json:"-"`
}

// PropertyFilter narrows a listing query. Nil / empty fields are ignored.
// A zero Limit returns every matching row.
type PropertyFilter struct {
    MinPrice     *float64
    MaxPrice     *float64
    Type         string
    Operation    string
    MinBedrooms  *int
    MinBathrooms *int
    Location     string
    OwnerID      string
    Limit        int
    Offset       int
}
