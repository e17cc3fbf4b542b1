package importer

import (
	"strings"

	"runtopsy/internal/store"
)

// typeFromSport maps a device sport name to an activity type
func typeFromSport(sport string) store.ActivityType {
	switch strings.ToLower(strings.TrimSpace(sport)) {
	case "running", "run", "trail_running":
		return store.TypeRunning
	case "walking", "walk":
		return store.TypeWalking
	case "hiking", "hike":
		return store.TypeHiking
	case "cycling", "biking", "ride", "e_biking":
		return store.TypeCycling
	case "swimming", "swim":
		return store.TypeSwimming
	}
	return store.TypeOther
}

// typeFromStrava maps a Strava sport_type or type to an activity type
func typeFromStrava(kind string) store.ActivityType {
	switch kind {
	case "Run", "TrailRun", "VirtualRun":
		return store.TypeRunning
	case "Walk":
		return store.TypeWalking
	case "Hike":
		return store.TypeHiking
	case "Ride", "VirtualRide", "EBikeRide", "EMountainBikeRide", "GravelRide", "MountainBikeRide", "Handcycle", "Velomobile":
		return store.TypeCycling
	case "Swim":
		return store.TypeSwimming
	}
	return store.TypeOther
}
