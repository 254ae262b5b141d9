// Package geo turns client IP addresses into coarse location labels.
package geo

import (
	"fmt"
	"net"
	"time"

	"github.com/oschwald/geoip2-golang"
	"go-url-registry/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Location labels used when no lookup result is available.
const (
	Unknown      = "Unknown"
	LocalNetwork = "Local Network"
)

// Locator resolves an IP address to a human readable place.
type Locator interface {
	Locate(ip string) string
}

// StaticLocator is used when no GeoIP database is configured. It can only
// tell local addresses apart from everything else.
type StaticLocator struct{}

// Locate implements Locator.
func (StaticLocator) Locate(ip string) string {
	if utils.IsPrivateIP(ip) {
		return LocalNetwork
	}
	return Unknown
}

// GeoIPLocator looks addresses up in a MaxMind City database.
type GeoIPLocator struct {
	reader *geoip2.Reader
	logger *zap.Logger
	warn   rate.Sometimes
}

// NewGeoIPLocator opens the MaxMind database at path.
func NewGeoIPLocator(path string, logger *zap.Logger) (*GeoIPLocator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	logger.Info("GeoIP database loaded", zap.String("path", path))
	return &GeoIPLocator{
		reader: reader,
		logger: logger,
		warn:   rate.Sometimes{First: 1, Interval: time.Minute},
	}, nil
}

// Locate returns "City, Country", or just the country when the city is not
// known. Lookup failures degrade to Unknown.
func (l *GeoIPLocator) Locate(ip string) string {
	if utils.IsPrivateIP(ip) {
		return LocalNetwork
	}

	record, err := l.reader.City(net.ParseIP(ip))
	if err != nil {
		l.warn.Do(func() {
			l.logger.Warn("GeoIP lookup failed", zap.String("ip", ip), zap.Error(err))
		})
		return Unknown
	}
	return label(record.City.Names["en"], record.Country.Names["en"])
}

// Close releases the database.
func (l *GeoIPLocator) Close() error {
	return l.reader.Close()
}

func label(city, country string) string {
	switch {
	case city != "" && country != "":
		return city + ", " + country
	case country != "":
		return country
	default:
		return Unknown
	}
}
