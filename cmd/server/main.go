package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"dispatch-routing-service/internal/adapters/cache"
	"dispatch-routing-service/internal/adapters/lock"
	"dispatch-routing-service/internal/adapters/optimization"
	"dispatch-routing-service/internal/adapters/repositories"
	"dispatch-routing-service/internal/api"
	"dispatch-routing-service/internal/config"
	"dispatch-routing-service/internal/domain"
	"dispatch-routing-service/internal/platform/db"
	"dispatch-routing-service/internal/platform/metrics"
	"dispatch-routing-service/internal/ports"
	"dispatch-routing-service/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, ORS) behind ports and starts
// the HTTP server. STORE=memory swaps in the in-process store and lock for
// local runs without infrastructure.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	port := config.Get("PORT", "8080")
	store := config.Get("STORE", "postgres")

	orsKey := os.Getenv("ORS_API_KEY")
	if strings.TrimSpace(orsKey) == "" {
		log.Fatal("ORS_API_KEY is required")
	}

	metrics.RegisterDefault()

	var (
		jobs      ports.JobStore
		routes    ports.RouteRepository
		stops     ports.StopRepository
		routeLock ports.RouteLock
		geoCache  *cache.RedisGeocodeCache
	)

	switch store {
	case "memory":
		mem := repositories.NewMemoryStore()
		jobs, routes, stops = mem, mem, mem
		routeLock = lock.NewLocalRouteLock()

	case "postgres":
		databaseURL := os.Getenv("DATABASE_URL")
		if strings.TrimSpace(databaseURL) == "" {
			log.Fatal("DATABASE_URL is required")
		}

		pg, err := db.Open(databaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer pg.Close()

		if err := repositories.InitSchema(pg); err != nil {
			log.Fatal(err)
		}

		redisClient := redis.NewClient(&redis.Options{
			Addr: config.Get("REDIS_ADDR", "localhost:6379"),
		})
		defer redisClient.Close()

		jobs = repositories.NewPostgresJobStore(pg)
		routes = repositories.NewPostgresRouteRepository(pg)
		stops = repositories.NewPostgresStopRepository(pg)
		routeLock = lock.NewRedisRouteLock(redisClient)
		geoCache = cache.NewRedisGeocodeCache(redisClient)

	default:
		log.Fatalf("unknown STORE %q (want postgres or memory)", store)
	}

	home := homeLocation()

	client, err := optimization.NewORSOptimizationClient(orsKey)
	if err != nil {
		log.Fatal(err)
	}
	geocoder, err := optimization.NewORSGeocoder(orsKey, geoCache)
	if err != nil {
		log.Fatal(err)
	}

	planner := &services.Planner{
		Jobs:         jobs,
		Routes:       routes,
		Stops:        stops,
		Lock:         routeLock,
		HomeLocation: home,
	}
	optimizer := &services.Optimizer{
		Jobs:         jobs,
		Routes:       routes,
		Stops:        stops,
		Client:       client,
		Lock:         routeLock,
		Geocoder:     geocoder,
		HomeLocation: home,
	}

	router := api.NewRouter(planner, optimizer)

	// WriteTimeout covers the provider round-trip on the optimize endpoint.
	log.Printf("Server listening addr=:%s store=%s", port, store)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

// homeLocation reads the shop home coordinate from the environment. Both
// values must be set; otherwise routes fall back to their first geocoded stop
// as origin.
func homeLocation() *domain.Coordinates {
	latRaw, lngRaw := os.Getenv("HOME_LAT"), os.Getenv("HOME_LNG")
	if latRaw == "" || lngRaw == "" {
		return nil
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		log.Fatalf("HOME_LAT %q is not a number", latRaw)
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		log.Fatalf("HOME_LNG %q is not a number", lngRaw)
	}

	return &domain.Coordinates{Lat: lat, Lng: lng}
}
