package config

const (
	EnvPrefix = "payintent"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv          = "PAYINTENT_APP_ENV"
	EnvPort            = "PAYINTENT_APP_PORT"
	EnvPortOverride    = "PORT"
	EnvDBDSN           = "PAYINTENT_DB_DSN"
	EnvRedisURL        = "PAYINTENT_REDIS_URL"
	EnvSupabaseURL     = "SUPABASE_URL"
	EnvSupabaseAnonKey = "SUPABASE_ANON_KEY"
	EnvSupabaseJWT     = "SUPABASE_JWT_SECRET"
	EnvStripeSecretKey = "STRIPE_SECRET_KEY"
	EnvProductName     = "PAYINTENT_PRODUCT_NAME"
	EnvDefaultCurrency = "PAYINTENT_DEFAULT_CURRENCY"
)
