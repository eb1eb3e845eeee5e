package optimization

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"dispatch-routing-service/internal/adapters/cache"
	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/platform/obs"
)

// ORSGeocoder resolves addresses via OpenRouteService (/geocode/search),
// fronted by an optional Redis cache so repeated lookups for the same
// address never leave the process twice.
type ORSGeocoder struct {
	http  *orsHTTP
	cache *cache.RedisGeocodeCache
}

func NewORSGeocoder(apiKey string, geocodeCache *cache.RedisGeocodeCache) (*ORSGeocoder, error) {
	h, err := newORSHTTP(apiKey)
	if err != nil {
		return nil, err
	}
	return &ORSGeocoder{http: h, cache: geocodeCache}, nil
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

func (g *ORSGeocoder) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	norm := normalize(address)
	if norm == "" {
		return domain.Coordinates{}, fmt.Errorf("geocode: address must be non-empty")
	}

	if g.cache != nil {
		cached, ok, err := g.cache.Get(ctx, norm)
		if err != nil {
			return domain.Coordinates{}, fmt.Errorf("geocode: read cache: %w", err)
		}
		if ok {
			return cached, nil
		}
	}

	endpoint := g.http.baseURL + "/geocode/search"
	resp, err := g.http.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := g.http.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", norm)
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode: execute request: %w", err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode: decode response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, fmt.Errorf("geocode: no results for %q", address)
	}
	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return domain.Coordinates{}, fmt.Errorf("geocode: invalid coordinate format for %q", address)
	}

	result := domain.Coordinates{Lat: coords[1], Lng: coords[0]}

	if g.cache != nil {
		if err := g.cache.Put(ctx, norm, result); err != nil {
			log.Printf("geocode cache write failed: %v", err)
		}
	}

	return result, nil
}
