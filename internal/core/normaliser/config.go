package normaliser

// DefaultCountryCode is the international dialling code applied to
// national numbers.
const DefaultCountryCode = "972"

// DefaultKnownLocations are place names that, alone in a name cell, denote a
// location rather than a customer.
var DefaultKnownLocations = []string{
	"תל אביב", "תל-אביב", "ירושלים", "חיפה", "באר שבע", "ראשון לציון", "פתח תקווה",
	"אשדוד", "נתניה", "חולון", "בני ברק", "רמת גן", "אשקלון", "רחובות", "בת ים",
	"הרצליה", "כפר סבא", "מודיעין", "רעננה", "אילת", "נצרת", "עפולה", "טבריה",
	"Tel Aviv", "Jerusalem", "Haifa", "Beer Sheva", "Rishon LeZion", "Petah Tikva",
	"Ashdod", "Netanya", "Holon", "Bnei Brak", "Ramat Gan", "Ashkelon", "Rehovot",
	"Bat Yam", "Herzliya", "Kfar Saba", "Modiin", "Raanana", "Eilat", "Nazareth",
}

// Config controls normalisation.
type Config struct {
	// CountryCode is the dialling code without '+'. Defaults to 972.
	CountryCode string

	// KnownLocations overrides DefaultKnownLocations when non-empty.
	KnownLocations []string
}

// DefaultConfig returns the default normaliser configuration.
func DefaultConfig() Config {
	return Config{CountryCode: DefaultCountryCode}
}
