package detection

import (
	"log"

	"reefwatch/classify"
	"reefwatch/geo"
	"reefwatch/types"
)

// ClusterObservations groups qualifying observations into geographic
// clusters with a single-pass seed-and-absorb sweep:
//
//  1. Observations are visited in input order; any already claimed by a
//     prior cluster is skipped.
//  2. Each unclaimed observation seeds a new cluster containing itself.
//  3. Every remaining unclaimed observation within radiusKM of the SEED
//     (not the evolving centroid) is absorbed and marked claimed.
//  4. Once membership is final, the reported center and average bleaching
//     percentage are recomputed as arithmetic means over the members.
//
// The grouping is order-dependent: two nearby points can land in different
// clusters depending on which seed claims them first. Members are only
// guaranteed to be within 2*radiusKM of each other (shared seed bound).
// O(n^2) distance computations; fine for hundreds to low thousands of
// observations, a grid or quadtree index would be needed beyond that.
func ClusterObservations(observations []types.Observation, radiusKM, minBleachingPct float64) []types.Cluster {
	var qualifying []*types.Observation
	for i := range observations {
		obs := &observations[i]
		if obs.ID == "" {
			log.Printf("Warning: observation at index %d missing ID, skipping.", i)
			continue
		}
		if classify.Qualifies(obs, minBleachingPct) {
			qualifying = append(qualifying, obs)
		}
	}

	log.Printf("Clustering %d qualifying observations (of %d) with radius %.1fkm",
		len(qualifying), len(observations), radiusKM)

	if len(qualifying) == 0 {
		return nil
	}

	var clusters []types.Cluster
	claimed := make([]bool, len(qualifying))

	for i, seed := range qualifying {
		if claimed[i] {
			continue
		}
		claimed[i] = true
		members := []*types.Observation{seed}

		for j := i + 1; j < len(qualifying); j++ {
			if claimed[j] {
				continue
			}
			other := qualifying[j]
			dist := geo.DistanceKM(seed.Lat, seed.Long, other.Lat, other.Long)
			if dist <= radiusKM {
				members = append(members, other)
				claimed[j] = true
			}
		}

		clusters = append(clusters, summarize(members))
	}

	log.Printf("Created %d location clusters", len(clusters))
	return clusters
}

// summarize finalizes a cluster: centroid and average bleaching over all
// members. Members are guaranteed non-empty and to carry a percentage
// (the inclusion rule excludes null-percentage observations).
func summarize(members []*types.Observation) types.Cluster {
	cluster := types.Cluster{
		MemberIDs: make([]string, 0, len(members)),
		Count:     len(members),
	}

	var sumLat, sumLong, sumPct float64
	for _, obs := range members {
		cluster.MemberIDs = append(cluster.MemberIDs, obs.ID)
		sumLat += obs.Lat
		sumLong += obs.Long
		if obs.BleachingPercentage != nil {
			sumPct += *obs.BleachingPercentage
		}
	}

	n := float64(len(members))
	cluster.CenterLat = sumLat / n
	cluster.CenterLong = sumLong / n
	cluster.AvgBleaching = sumPct / n

	return cluster
}
