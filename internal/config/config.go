package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const configFileName = "config.yaml"

// 1ユーザー1回まで（既定）
const (
	CouponPolicySingleUse    = "single_use"
	CouponPolicyPerUserLimit = "per_user_limit"
)

// Configはアプリ全体の設定
type Config struct {
	App struct {
		Name     string `yaml:"name"`
		Env      string `yaml:"env"` // dev/prod
		LogLevel string `yaml:"logLevel"`
	} `yaml:"app"`

	HTTP struct {
		Port            int           `yaml:"port"`
		BodyLimit       string        `yaml:"bodyLimit"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		AllowOrigins    []string      `yaml:"allowOrigins"`
	} `yaml:"http"`

	Postgres struct {
		URL      string `yaml:"url"` // 指定があれば最優先
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DB       string `yaml:"db"`
		SSLMode  string `yaml:"sslMode"`
		Migrate  bool   `yaml:"migrate"`
	} `yaml:"postgres"`

	Auth struct {
		JWTSecret     string        `yaml:"jwtSecret"`
		AccessTTL     time.Duration `yaml:"accessTTL"`
		BcryptCost    int           `yaml:"bcryptCost"`
		ResetTokenTTL time.Duration `yaml:"resetTokenTTL"`
	} `yaml:"auth"`

	// admin-token cookie
	Admin struct {
		TokenTTL     time.Duration `yaml:"tokenTTL"`
		CookieName   string        `yaml:"cookieName"`
		CookieSecure bool          `yaml:"cookieSecure"`
	} `yaml:"admin"`

	Payment struct {
		KeyID     string `yaml:"keyId"`
		KeySecret string `yaml:"keySecret"`
		Currency  string `yaml:"currency"`
	} `yaml:"payment"`

	Coupon struct {
		PerUserPolicy string `yaml:"perUserPolicy"`
	} `yaml:"coupon"`

	Order struct {
		CancellationWindow    time.Duration   `yaml:"cancellationWindow"`
		CancellationFeeRate   decimal.Decimal `yaml:"cancellationFeeRate"`
		ShippingFee           decimal.Decimal `yaml:"shippingFee"`
		FreeShippingThreshold decimal.Decimal `yaml:"freeShippingThreshold"`
		TaxRate               decimal.Decimal `yaml:"taxRate"`
	} `yaml:"order"`

	Frontend struct {
		URL string `yaml:"url"`
	} `yaml:"frontend"`
}

// 既存の環境変数名（旧名）はそのまま使えるようにする
var envAliases = map[string]string{
	"PORT":                "http.port",
	"DATABASE_URL":        "postgres.url",
	"JWT_SECRET":          "auth.jwtSecret",
	"GO_ENV":              "app.env",
	"FE_URL":              "frontend.url",
	"RAZORPAY_KEY_ID":     "payment.keyId",
	"RAZORPAY_KEY_SECRET": "payment.keySecret",
	"COOKIE_SECURE":       "admin.cookieSecure",
}

// Loadは .env → config.yaml → 環境変数 の順で読み込む。
// 後に読んだものが優先。
func Load(searchPaths ...string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if path, ok := findConfigFile(searchPaths); ok {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read %s failed", path)
		}
	}

	existing := k.Raw()
	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			if alias, ok := envAliases[key]; ok {
				return alias, value
			}
			return canonicalizeEnvKey(key, existing), value
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	cfg := new(Config)
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "yaml",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			TagName:          "yaml",
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				decimalHook(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config failed")
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "air5star-api"
	}
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.BodyLimit == "" {
		c.HTTP.BodyLimit = "1M"
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Auth.AccessTTL == 0 {
		c.Auth.AccessTTL = 24 * time.Hour
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 12
	}
	if c.Auth.ResetTokenTTL == 0 {
		c.Auth.ResetTokenTTL = time.Hour
	}
	if c.Admin.TokenTTL == 0 {
		c.Admin.TokenTTL = 8 * time.Hour
	}
	if c.Admin.CookieName == "" {
		c.Admin.CookieName = "admin-token"
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "INR"
	}
	if c.Coupon.PerUserPolicy == "" {
		c.Coupon.PerUserPolicy = CouponPolicySingleUse
	}
	if c.Order.CancellationWindow == 0 {
		c.Order.CancellationWindow = 12 * time.Hour
	}
	if c.Order.CancellationFeeRate.IsZero() {
		c.Order.CancellationFeeRate = decimal.RequireFromString("0.05")
	}
}

// 必須チェック
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret (JWT_SECRET) is required")
	}
	if c.Postgres.URL == "" {
		if c.Postgres.Host == "" {
			return errors.New("postgres.host is required")
		}
		if c.Postgres.User == "" {
			return errors.New("postgres.user is required")
		}
		if c.Postgres.DB == "" {
			return errors.New("postgres.db is required")
		}
	}
	if c.Payment.KeySecret == "" {
		return errors.New("payment.keySecret (RAZORPAY_KEY_SECRET) is required")
	}
	if c.Frontend.URL == "" {
		return errors.New("frontend.url (FE_URL) is required")
	}
	switch c.Coupon.PerUserPolicy {
	case CouponPolicySingleUse, CouponPolicyPerUserLimit:
	default:
		return errors.Errorf("coupon.perUserPolicy must be %q or %q", CouponPolicySingleUse, CouponPolicyPerUserLimit)
	}
	if c.Order.CancellationFeeRate.IsNegative() || c.Order.CancellationFeeRate.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("order.cancellationFeeRate must be between 0 and 1")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "prod") || strings.EqualFold(c.App.Env, "production")
}

func findConfigFile(searchPaths []string) (string, bool) {
	paths := make([]string, 0, len(searchPaths)+4)
	paths = append(paths, searchPaths...)
	paths = append(paths, ".", "config", "../..", "../../config")
	for _, dir := range paths {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// decimalHookは "0.18" や 0.18 を decimal.Decimal に変換する
func decimalHook() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(decimal.Decimal{})
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != target {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return decimal.Zero, nil
			}
			return decimal.NewFromString(strings.TrimSpace(v))
		case float64:
			return decimal.NewFromFloat(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		default:
			return data, nil
		}
	}
}

// POSTGRES_SSLMODE -> postgres.sslMode のように既存キーに合わせる
func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}
		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
			continue
		}
		canonical = append(canonical, segment)
		current = nil
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (string, map[string]any, bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}
		child, _ := value.(map[string]any)
		return key, child, true
	}
	return "", nil, false
}

func normalizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
