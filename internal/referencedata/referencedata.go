package referencedata

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"
)

var (
	ErrInvalidPostcode      = errors.New("referencedata: invalid postcode")
	ErrPostcodeNotFound     = errors.New("referencedata: postcode not found")
	ErrMunicipalityNotFound = errors.New("referencedata: municipality not found")
)

var postcodePattern = regexp.MustCompile(`^[0-9]{5}$`)

// ValidPostcode reports whether s is a five digit postcode.
func ValidPostcode(s string) bool {
	return postcodePattern.MatchString(s)
}

// Municipality is a municipality of the postcode registry.
type Municipality struct {
	Code   string
	Name   string
	Region string
}

// Postcode is a postal code area.
type Postcode struct {
	Code             string
	Name             string
	MunicipalityCode string
	Active           bool
}

// Lookup reads reference data.
type Lookup interface {
	ListPostcodes(ctx context.Context) ([]string, error)
	GetPostcode(ctx context.Context, code string) (*Postcode, error)
	GetMunicipality(ctx context.Context, code string) (*Municipality, error)
}

// Static is an in-memory reference data set.
type Static struct {
	mu             sync.RWMutex
	postcodes      map[string]Postcode
	municipalities map[string]Municipality
}

// NewStatic builds a static set. Postcodes without a municipality entry are
// still listed.
func NewStatic(postcodes []Postcode, municipalities []Municipality) *Static {
	s := &Static{
		postcodes:      make(map[string]Postcode, len(postcodes)),
		municipalities: make(map[string]Municipality, len(municipalities)),
	}
	for _, p := range postcodes {
		s.postcodes[p.Code] = p
	}
	for _, m := range municipalities {
		s.municipalities[m.Code] = m
	}
	return s
}

// NewStaticPostcodes builds an active postcode set from codes.
func NewStaticPostcodes(codes ...string) *Static {
	postcodes := make([]Postcode, 0, len(codes))
	for _, c := range codes {
		postcodes = append(postcodes, Postcode{Code: c, Active: true})
	}
	return NewStatic(postcodes, nil)
}

// ListPostcodes returns the active postcodes in ascending order.
func (s *Static) ListPostcodes(ctx context.Context) ([]string, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.postcodes))
	for code, p := range s.postcodes {
		if p.Active {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// GetPostcode loads one postcode.
func (s *Static) GetPostcode(ctx context.Context, code string) (*Postcode, error) {
	_ = ctx
	if !ValidPostcode(code) {
		return nil, ErrInvalidPostcode
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.postcodes[code]
	if !ok {
		return nil, ErrPostcodeNotFound
	}
	return &p, nil
}

// GetMunicipality loads one municipality.
func (s *Static) GetMunicipality(ctx context.Context, code string) (*Municipality, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.municipalities[code]
	if !ok {
		return nil, ErrMunicipalityNotFound
	}
	return &m, nil
}
