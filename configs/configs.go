package configs

import (
	"os"

	"github.com/joho/godotenv"
)

var (
	// HKDF info strings, one per derivation so keys never collide across uses
	HKDFInfo               = []byte("SignalMetadataKit")
	HKDFInfoX3DH           = []byte("SignalMetadataKit_X3DH")
	HKDFInfoSenderKey      = []byte("SignalMetadataKit_SenderKey")
	HKDFInfoSealedEphemera = []byte("SignalMetadataKit_SealedSender_Ephemeral")
	HKDFInfoSealedStatic   = []byte("SignalMetadataKit_SealedSender_Static")
	HKDFInfoSealedV2Key    = []byte("SignalMetadataKit_SealedSender_v2_Key")
	HKDFInfoSealedV2Auth   = []byte("SignalMetadataKit_SealedSender_v2_Auth")
	HKDFInfoSealedV2Body   = []byte("SignalMetadataKit_SealedSender_v2_Content")

	LogLevel = "info"

	// StoreBackend selects the protocol store used by the commands: memory, redis, sqlite or postgres
	StoreBackend  = "memory"
	RedisAddress  = "localhost:6379"
	SQLDataSource = "signal.db"

	// Store keys

	StoreSessionKey      = "session:%s"
	StoreIdentityKey     = "identity:%s"
	StorePreKeyKey       = "prekey:%d"
	StoreSignedPreKeyKey = "signedprekey:%d"
	StoreKyberPreKeyKey  = "kyberprekey:%d"
	StoreSenderKeyKey    = "senderkey:%s:%s"
)

// Load reads the given .env files (missing files are ignored) and overrides
// the package defaults with whatever is set in the environment.
func Load(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return err
		}
	}

	overrideString(&LogLevel, "LOG_LEVEL")
	overrideString(&StoreBackend, "STORE_BACKEND")
	overrideString(&RedisAddress, "REDIS_ADDRESS")
	overrideString(&SQLDataSource, "SQL_DATA_SOURCE")
	return nil
}

func overrideString(dst *string, env string) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		*dst = v
	}
}
