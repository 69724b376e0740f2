package transaction

import (
	"strconv"
	"strings"
	"time"

	"campusmarket/internal/apperr"
	"campusmarket/internal/delivery"
	"campusmarket/internal/post"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var (
	errMissingDetails       = apperr.Validation("Missing required transaction details.")
	errFulfillmentRequired  = apperr.Validation("Fulfillment method is required.")
	errInvalidFulfillment   = apperr.Validation("Invalid fulfillment method.")
	errPaymentRequired      = apperr.Validation("Payment method is required.")
	errInvalidPayment       = apperr.Validation("Invalid payment method.")
	errPriceRequired        = apperr.Validation("Price is required.")
	errMeetupLocation       = apperr.Validation("Meetup location is required.")
	errDeliveryLocation     = apperr.Validation("Delivery location is required.")
	errDeliveryCoordinates  = apperr.Validation("Delivery coordinates are required.")
	errDeliveryFee          = apperr.Validation("Delivery fee calculation failed.")
	errRentDatesRequired    = apperr.Validation("Rental start and end dates are required.")
	errRentDatesOrder       = apperr.Validation("Rental end date cannot be before the start date.")
	errOfferedItem          = apperr.Validation("Offered item is required.")
	errTradePaymentRequired = apperr.Validation("Payment method is required when trade includes additional cash")
)

type builder func(f CreateForm) (*Transaction, []post.ItemInput, error)

var builders = map[string]builder{
	post.TypeSale:     buildSale,
	post.TypeRent:     buildRent,
	post.TypeTrade:    buildTrade,
	post.TypeGiveaway: buildGiveaway,
	post.TypePasaBuy:  buildPasaBuy,
}

func newFromForm(postType string, f CreateForm) (*Transaction, error) {
	sellerID := strings.TrimSpace(f.SellerID)
	postID := strings.TrimSpace(f.PostID)
	conversationID := strings.TrimSpace(f.ConversationID)
	if sellerID == "" || postID == "" || conversationID == "" {
		return nil, errMissingDetails
	}

	price, err := parseMoney("price", f.Price)
	if err != nil {
		return nil, err
	}

	return &Transaction{
		SellerID:       sellerID,
		PostID:         &postID,
		PostType:       postType,
		ConversationID: &conversationID,
		ItemTitle:      optional(f.ItemTitle),
		Price:          price,
		Status:         StatusPending,
	}, nil
}

func buildSale(f CreateForm) (*Transaction, []post.ItemInput, error) {
	t, err := newFromForm(post.TypeSale, f)
	if err != nil {
		return nil, nil, err
	}
	if !t.Price.Valid {
		return nil, nil, errPriceRequired
	}
	if err := applyFulfillment(t, f, true); err != nil {
		return nil, nil, err
	}
	if t.PaymentMethod, err = requirePayment(f.PaymentMethod, errPaymentRequired); err != nil {
		return nil, nil, err
	}
	return t, nil, nil
}

func buildRent(f CreateForm) (*Transaction, []post.ItemInput, error) {
	t, err := newFromForm(post.TypeRent, f)
	if err != nil {
		return nil, nil, err
	}
	if !t.Price.Valid {
		return nil, nil, errPriceRequired
	}
	if err := applyFulfillment(t, f, false); err != nil {
		return nil, nil, err
	}
	if t.PaymentMethod, err = requirePayment(f.PaymentMethod, errPaymentRequired); err != nil {
		return nil, nil, err
	}

	start, end := strings.TrimSpace(f.RentStartDate), strings.TrimSpace(f.RentEndDate)
	if start == "" || end == "" {
		return nil, nil, errRentDatesRequired
	}
	startDate, err := time.Parse(dateLayout, start)
	if err != nil {
		return nil, nil, apperr.Validation("Invalid rental start date.")
	}
	endDate, err := time.Parse(dateLayout, end)
	if err != nil {
		return nil, nil, apperr.Validation("Invalid rental end date.")
	}
	if endDate.Before(startDate) {
		return nil, nil, errRentDatesOrder
	}
	t.RentStartDate = &startDate
	t.RentEndDate = &endDate
	return t, nil, nil
}

// buildTrade only keeps a payment method when the trade carries a cash top-up.
func buildTrade(f CreateForm) (*Transaction, []post.ItemInput, error) {
	t, err := newFromForm(post.TypeTrade, f)
	if err != nil {
		return nil, nil, err
	}
	t.OfferedItem = optional(f.OfferedItem)
	if t.OfferedItem == nil {
		return nil, nil, errOfferedItem
	}
	if err := applyFulfillment(t, f, false); err != nil {
		return nil, nil, err
	}

	cash := t.Price
	if !cash.Valid {
		if cash, err = parseMoney("cash added", f.CashAdded); err != nil {
			return nil, nil, err
		}
	}

	if cash.Valid && cash.Decimal.IsPositive() {
		if t.PaymentMethod, err = requirePayment(f.PaymentMethod, errTradePaymentRequired); err != nil {
			return nil, nil, err
		}
		t.Price = cash
		t.CashAdded = cash
	} else {
		t.Price = decimal.NullDecimal{}
		t.CashAdded = decimal.NullDecimal{}
		t.PaymentMethod = nil
	}
	return t, nil, nil
}

// buildGiveaway ignores any submitted payment method or price.
func buildGiveaway(f CreateForm) (*Transaction, []post.ItemInput, error) {
	t, err := newFromForm(post.TypeGiveaway, f)
	if err != nil {
		return nil, nil, err
	}
	if err := applyFulfillment(t, f, false); err != nil {
		return nil, nil, err
	}
	t.Price = decimal.NullDecimal{}
	t.PaymentMethod = nil
	return t, nil, nil
}

// buildPasaBuy prices the order as the item total plus the service fee.
func buildPasaBuy(f CreateForm) (*Transaction, []post.ItemInput, error) {
	items, err := post.ParseItems(f.Items)
	if err != nil {
		return nil, nil, err
	}
	t, err := newFromForm(post.TypePasaBuy, f)
	if err != nil {
		return nil, nil, err
	}
	if err := applyFulfillment(t, f, false); err != nil {
		return nil, nil, err
	}
	if t.PaymentMethod, err = optionalPayment(f.PaymentMethod); err != nil {
		return nil, nil, err
	}

	if t.ServiceFee, err = parseMoney("service fee", f.ServiceFee); err != nil {
		return nil, nil, err
	}
	total := t.ServiceFee.Decimal
	for _, item := range items {
		total = total.Add(item.Price)
	}
	t.Price = decimal.NewNullDecimal(total)
	return t, items, nil
}

// applyFulfillment copies the meetup or delivery fields. With
// requireQuote the delivery point and its precomputed fee and distance
// must all be present.
func applyFulfillment(t *Transaction, f CreateForm, requireQuote bool) error {
	method := strings.TrimSpace(f.FulfillmentMethod)
	switch method {
	case "":
		return errFulfillmentRequired
	case FulfillmentMeetup:
		t.MeetupLocation = optional(f.MeetupLocation)
		if t.MeetupLocation == nil {
			return errMeetupLocation
		}
		t.MeetupDate = optional(f.MeetupDate)
		t.MeetupTime = optional(f.MeetupTime)
	case FulfillmentDelivery:
		t.DeliveryLocation = optional(f.DeliveryLocation)
		if t.DeliveryLocation == nil {
			return errDeliveryLocation
		}
		lat, latErr := parseCoordinate(f.DeliveryLat)
		lng, lngErr := parseCoordinate(f.DeliveryLng)
		if latErr != nil || lngErr != nil {
			return apperr.Validation("Invalid delivery coordinates.")
		}
		if lat != nil && lng != nil {
			point := delivery.Point{Lat: *lat, Lng: *lng}
			if !point.Valid() {
				return apperr.Validation("Invalid delivery coordinates.")
			}
			hash := delivery.Geohash(point)
			t.DeliveryLat, t.DeliveryLng, t.DeliveryGeohash = lat, lng, &hash
		}

		fee, err := parseMoney("delivery fee", f.DeliveryFee)
		if err != nil {
			return err
		}
		distance, err := parseMoney("delivery distance", f.DeliveryDistanceKm)
		if err != nil {
			return err
		}
		if requireQuote {
			if t.DeliveryLat == nil || t.DeliveryLng == nil {
				return errDeliveryCoordinates
			}
			if !fee.Valid || !distance.Valid {
				return errDeliveryFee
			}
		}
		t.DeliveryFee = fee
		t.DeliveryDistanceKm = distance
		pending := "Pending"
		t.DeliveryStatus = &pending
	default:
		return errInvalidFulfillment
	}

	t.FulfillmentMethod = &method
	return nil
}

func requirePayment(raw string, missing error) (*string, error) {
	method, err := optionalPayment(raw)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, missing
	}
	return method, nil
}

func optionalPayment(raw string) (*string, error) {
	method := optional(raw)
	if method == nil {
		return nil, nil
	}
	if !paymentMethods[*method] {
		return nil, errInvalidPayment
	}
	return method, nil
}

func parseMoney(field, raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}, apperr.Validation("Invalid " + field + ".")
	}
	return decimal.NewNullDecimal(d.Round(2)), nil
}

func parseCoordinate(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
