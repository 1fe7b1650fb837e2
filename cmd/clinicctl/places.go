package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clinicfinder/backend/internal/application/services"
	"github.com/clinicfinder/backend/internal/bootstrap"
	"github.com/clinicfinder/backend/internal/domain/entities"
)

var nearbyCmd = &cobra.Command{
	Use:   "nearby <lat> <lng>",
	Short: "Discover clinics near a point",
	Long: `Nearby runs the same flow as GET /api/places/nearby: persisted clinics are
served when enough exist inside the radius, otherwise both place sources are
queried and newly found clinics are persisted.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		point, err := parsePoint(args[0], args[1])
		if err != nil {
			return err
		}
		radius, _ := cmd.Flags().GetFloat64("radius")
		types, _ := cmd.Flags().GetStringSlice("types")
		ranking, _ := cmd.Flags().GetString("ranking")
		maxResults, _ := cmd.Flags().GetInt("max-results")
		skipCache, _ := cmd.Flags().GetBool("skip-cache")

		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) (interface{}, error) {
			return app.Discovery.DiscoverNearby(ctx, services.DiscoverNearbyRequest{
				Lat:        point.Lat,
				Lng:        point.Lng,
				RadiusKm:   radius,
				Types:      types,
				Ranking:    ranking,
				MaxResults: maxResults,
				SkipCache:  skipCache,
			})
		})
	},
}

var cachedCmd = &cobra.Command{
	Use:   "cached <lat> <lng>",
	Short: "List persisted clinics near a point",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		point, err := parsePoint(args[0], args[1])
		if err != nil {
			return err
		}
		radius, _ := cmd.Flags().GetFloat64("radius")
		types, _ := cmd.Flags().GetStringSlice("types")

		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) (interface{}, error) {
			return app.CacheRead.GetCachedClinics(ctx, point.Lat, point.Lng, radius, types)
		})
	},
}

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Resolve an address to coordinates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		address := strings.Join(args, " ")
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) (interface{}, error) {
			return app.Resolver.GeocodeAddress(ctx, address)
		})
	},
}

var reverseCmd = &cobra.Command{
	Use:   "reverse <lat> <lng>",
	Short: "Resolve coordinates to an address",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		point, err := parsePoint(args[0], args[1])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) (interface{}, error) {
			return app.Resolver.ReverseGeocode(ctx, point)
		})
	},
}

var directionsCmd = &cobra.Command{
	Use:   "directions <origin-lat> <origin-lng> <dest-lat> <dest-lng>",
	Short: "Fetch a route between two points",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		origin, err := parsePoint(args[0], args[1])
		if err != nil {
			return err
		}
		destination, err := parsePoint(args[2], args[3])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) (interface{}, error) {
			return app.Resolver.GetDirections(ctx, origin, destination)
		})
	},
}

func parsePoint(latArg, lngArg string) (entities.LatLng, error) {
	lat, err := strconv.ParseFloat(latArg, 64)
	if err != nil || lat < -90 || lat > 90 {
		return entities.LatLng{}, fmt.Errorf("invalid latitude %q", latArg)
	}
	lng, err := strconv.ParseFloat(lngArg, 64)
	if err != nil || lng < -180 || lng > 180 {
		return entities.LatLng{}, fmt.Errorf("invalid longitude %q", lngArg)
	}
	return entities.LatLng{Lat: lat, Lng: lng}, nil
}

func init() {
	for _, cmd := range []*cobra.Command{nearbyCmd, cachedCmd} {
		cmd.Flags().Float64("radius", 5, "search radius in kilometres")
		cmd.Flags().StringSlice("types", nil, "clinic categories or place types (comma-separated)")
	}
	nearbyCmd.Flags().String("ranking", entities.RankingDistance, "DISTANCE or POPULARITY")
	nearbyCmd.Flags().Int("max-results", 5, "maximum live results per source")
	nearbyCmd.Flags().Bool("skip-cache", false, "always query the live sources")

	rootCmd.AddCommand(nearbyCmd, cachedCmd, geocodeCmd, reverseCmd, directionsCmd)
}
