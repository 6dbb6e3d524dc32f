package metrics

import "resale-admin/internal/week"

// The builders only return non-empty buckets. Charts need an explicit zero for
// every week of the axis, so the HTTP layer densifies with these helpers.

type series struct {
	id   string
	name string
}

func seriesOf[T any](points []T, id func(T) (string, string)) []series {
	seen := make(map[string]bool)
	var out []series
	for _, p := range points {
		pid, name := id(p)
		if seen[pid] {
			continue
		}
		seen[pid] = true
		out = append(out, series{id: pid, name: name})
	}
	return out
}

func densify[T any](points []T, keys []week.Key, id func(T) (string, string), at func(T) week.Key, zero func(week.Key, series) T) []T {
	index := make(map[bucket]T, len(points))
	for _, p := range points {
		pid, _ := id(p)
		index[bucket{week: at(p), propertyID: pid}] = p
	}
	all := seriesOf(points, id)
	out := make([]T, 0, len(keys)*len(all))
	for _, k := range keys {
		for _, s := range all {
			if p, ok := index[bucket{week: k, propertyID: s.id}]; ok {
				out = append(out, p)
				continue
			}
			out = append(out, zero(k, s))
		}
	}
	return out
}

// DensifyOccupancy fills zero points over keys for every property present in points.
func DensifyOccupancy(points []OccupancyPoint, keys []week.Key) []OccupancyPoint {
	return densify(points, keys,
		func(p OccupancyPoint) (string, string) { return p.PropertyID, p.PropertyName },
		func(p OccupancyPoint) week.Key { return p.Week },
		func(k week.Key, s series) OccupancyPoint {
			return OccupancyPoint{Week: k, PropertyID: s.id, PropertyName: s.name}
		})
}

// DensifyADR fills zero points over keys for every property present in points.
func DensifyADR(points []ADRPoint, keys []week.Key) []ADRPoint {
	return densify(points, keys,
		func(p ADRPoint) (string, string) { return p.PropertyID, p.PropertyName },
		func(p ADRPoint) week.Key { return p.Week },
		func(k week.Key, s series) ADRPoint {
			return ADRPoint{Week: k, PropertyID: s.id, PropertyName: s.name}
		})
}

// DensifySales fills zero points over keys for every property present in points.
func DensifySales(points []SalesPoint, keys []week.Key) []SalesPoint {
	return densify(points, keys,
		func(p SalesPoint) (string, string) { return p.PropertyID, p.PropertyName },
		func(p SalesPoint) week.Key { return p.Week },
		func(k week.Key, s series) SalesPoint {
			return SalesPoint{Week: k, PropertyID: s.id, PropertyName: s.name}
		})
}
