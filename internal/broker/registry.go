package broker

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"

	"github.com/riverjin839/riverflow/internal/logger"
	"github.com/riverjin839/riverflow/pkg/errors"
)

// BrokerType selects one of the wire adapters.
type BrokerType string

const (
	BrokerKIS    BrokerType = "kis"
	BrokerBridge BrokerType = "bridge"
)

// BrokerInfo is adapter metadata surfaced to configuration tooling.
type BrokerInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Streaming   bool   `json:"streaming"`
}

var brokerRegistry = map[BrokerType]BrokerInfo{
	BrokerKIS: {
		Name:        string(BrokerKIS),
		DisplayName: "KIS OpenAPI",
		Description: "REST + WebSocket brokerage wire protocol with live and paper environments",
		Streaming:   true,
	},
	BrokerBridge: {
		Name:        string(BrokerBridge),
		DisplayName: "Relay Bridge",
		Description: "HTTP relay in front of a broker API that only runs on a remote host",
		Streaming:   false,
	},
}

// KISConfig configures the KIS wire adapter.
type KISConfig struct {
	AppKey    string `yaml:"app_key" json:"appKey" jsonschema:"title=App Key,description=KIS application key" validate:"required"`
	AppSecret string `yaml:"app_secret" json:"appSecret" jsonschema:"title=App Secret,description=KIS application secret" validate:"required"`
	AccountNo string `yaml:"account_no" json:"accountNo" jsonschema:"title=Account Number,description=Account number as CANO-PRDT (e.g. 12345678-01)" validate:"required"`
	// Virtual routes every call to the paper-trading environment.
	Virtual bool `yaml:"virtual" json:"virtual" jsonschema:"title=Virtual,description=Use the paper-trading environment"`
}

// Validate validates the KISConfig struct.
func (c *KISConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid kis broker config", err)
	}

	return nil
}

// BridgeConfig configures the relay-bridge adapter.
type BridgeConfig struct {
	URL   string `yaml:"url" json:"url" jsonschema:"title=Bridge URL,description=Base URL of the relay bridge" validate:"required,url"`
	Token string `yaml:"token" json:"token" jsonschema:"title=Bridge Token,description=Bearer token for the relay bridge" validate:"required"`
}

// Validate validates the BridgeConfig struct.
func (c *BridgeConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid bridge broker config", err)
	}

	return nil
}

// GetSupportedBrokers lists the registered adapter names.
func GetSupportedBrokers() []string {
	brokers := make([]string, 0, len(brokerRegistry))
	for brokerType := range brokerRegistry {
		brokers = append(brokers, string(brokerType))
	}

	return brokers
}

// GetBrokerInfo returns metadata for a specific adapter.
func GetBrokerInfo(name string) (BrokerInfo, error) {
	info, exists := brokerRegistry[BrokerType(name)]
	if !exists {
		return BrokerInfo{}, errors.Newf(errors.ErrCodeUnsupportedBroker, "unsupported broker: %s", name)
	}

	return info, nil
}

// GetBrokerConfigSchema returns the JSON schema for an adapter's configuration.
func GetBrokerConfigSchema(name string) (string, error) {
	switch BrokerType(name) {
	case BrokerKIS:
		return toJSONSchema(KISConfig{})
	case BrokerBridge:
		return toJSONSchema(BridgeConfig{})
	default:
		return "", errors.Newf(errors.ErrCodeUnsupportedBroker, "unsupported broker: %s", name)
	}
}

func toJSONSchema[T any](t T) (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(t)

	jsonSchemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}

// New creates a broker adapter by type.
func New(brokerType BrokerType, config any, log *logger.Logger) (Broker, error) {
	switch brokerType {
	case BrokerKIS:
		cfg, ok := config.(KISConfig)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "invalid config type for kis broker")
		}

		return NewKISBroker(cfg, log)
	case BrokerBridge:
		cfg, ok := config.(BridgeConfig)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "invalid config type for bridge broker")
		}

		return NewBridgeBroker(cfg, log)
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedBroker, "unsupported broker: %s", brokerType)
	}
}
