package delivery

import (
	"math"

	"github.com/mmcloughlin/geohash"
	"github.com/shopspring/decimal"
)

const (
	earthRadiusKm    = 6371.0
	GeohashPrecision = 7
)

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Geohash encodes p at street-level precision.
func Geohash(p Point) string {
	return geohash.EncodeWithPrecision(p.Lat, p.Lng, GeohashPrecision)
}

// DistanceKm is the great-circle distance between a and b using the
// Haversine formula.
func DistanceKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180.0
	lon1 := a.Lng * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	lon2 := b.Lng * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

type Quote struct {
	DistanceKm decimal.Decimal `json:"distance_km"`
	Fee        decimal.Decimal `json:"fee"`
	Geohash    string          `json:"geohash"`
}

type Quoter struct {
	baseFee  decimal.Decimal
	perKmFee decimal.Decimal
}

func NewQuoter(baseFee, perKmFee decimal.Decimal) *Quoter {
	return &Quoter{baseFee: baseFee, perKmFee: perKmFee}
}

// Quote prices a delivery from seller to buyer. The fee is rounded up to
// whole pesos; the geohash is the drop-off point.
func (q *Quoter) Quote(from, to Point) Quote {
	distance := decimal.NewFromFloat(DistanceKm(from, to)).Round(2)
	fee := q.baseFee.Add(q.perKmFee.Mul(distance)).Ceil()
	return Quote{
		DistanceKm: distance,
		Fee:        fee,
		Geohash:    Geohash(to),
	}
}
