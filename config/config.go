// Package config holds the runtime configuration of herald and the presets of
// the chains it knows.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names
const (
	EnvChain         = "HERALD_CHAIN"
	EnvAPIURL        = "HERALD_API_URL"
	EnvRPCURL        = "HERALD_RPC_URL"
	EnvLensHub       = "HERALD_LENS_HUB"
	EnvPrivateKey    = "HERALD_PRIVATE_KEY"
	EnvSignerURL     = "HERALD_SIGNER_URL"
	EnvSignerAddress = "HERALD_SIGNER_ADDRESS"
	EnvSubmitterKey  = "HERALD_SUBMITTER_KEY"
	EnvStore         = "HERALD_STORE"
	EnvDataDir       = "HERALD_DATA_DIR"
	EnvRedisURL      = "HERALD_REDIS_URL"
	EnvConfirm       = "HERALD_CONFIRM"
	EnvReauth        = "HERALD_REAUTH"
	EnvListen        = "HERALD_LISTEN"
	EnvVerbose       = "HERALD_VERBOSE"
)

type ChainName string

const (
	ChainName_Polygon ChainName = "polygon"
	ChainName_Mumbai  ChainName = "mumbai"
	ChainName_Amoy    ChainName = "amoy"
)

// Chain is the deployment a chain name resolves to
type Chain struct {
	ID      uint64
	APIURL  string
	LensHub common.Address
}

var chains = map[ChainName]Chain{
	ChainName_Polygon: {
		ID:      137,
		APIURL:  "https://api.lens.dev",
		LensHub: common.HexToAddress("0xDb46d1Dc155634FbC732f92E853b10B288AD5a1d"),
	},
	ChainName_Mumbai: {
		ID:      80001,
		APIURL:  "https://api-mumbai.lens.dev",
		LensHub: common.HexToAddress("0x60Ae865ee4C725cd04353b5AAb364553f56ceF82"),
	},
	// no public deployment; api url and hub must be given explicitly
	ChainName_Amoy: {
		ID: 80002,
	},
}

// GetChain returns the preset for name
func GetChain(name ChainName) (Chain, error) {
	c, ok := chains[name]
	if !ok {
		return Chain{}, fmt.Errorf("unsupported chain %q (supported: %s)", name, GetSupportedChainsString())
	}
	return c, nil
}

// GetSupportedChainsString returns the supported chain names for CLI help
func GetSupportedChainsString() string {
	names := make([]string, 0, len(chains))
	for name := range chains {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreBadger StoreBackend = "badger"
	StoreRedis  StoreBackend = "redis"
)

// SignerConfig selects the key sessions and actions are signed with. Exactly
// one of PrivateKey and URL is set.
type SignerConfig struct {
	PrivateKey string `json:"privateKey" yaml:"privateKey"`
	URL        string `json:"url" yaml:"url"`
	Address    string `json:"address" yaml:"address"`
	Confirm    bool   `json:"confirm" yaml:"confirm"`
}

func (sc *SignerConfig) Validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	switch {
	case sc.PrivateKey == "" && sc.URL == "":
		allErrors = append(allErrors, field.Required(path, "privateKey or url is required"))
	case sc.PrivateKey != "" && sc.URL != "":
		allErrors = append(allErrors, field.Forbidden(path.Child("url"), "url cannot be combined with privateKey"))
	case sc.URL != "" && !common.IsHexAddress(sc.Address):
		allErrors = append(allErrors, field.Invalid(path.Child("address"), sc.Address, "a remote signer needs the address it signs for"))
	}
	return allErrors
}

type Config struct {
	Chain        ChainName    `json:"chain" yaml:"chain"`
	ChainID      uint64       `json:"chainId" yaml:"chainId"`
	APIURL       string       `json:"apiUrl" yaml:"apiUrl"`
	RPCURL       string       `json:"rpcUrl" yaml:"rpcUrl"`
	LensHub      string       `json:"lensHub" yaml:"lensHub"`
	Signer       SignerConfig `json:"signer" yaml:"signer"`
	SubmitterKey string       `json:"submitterKey" yaml:"submitterKey"`
	Store        StoreBackend `json:"store" yaml:"store"`
	DataDir      string       `json:"dataDir" yaml:"dataDir"`
	RedisURL     string       `json:"redisUrl" yaml:"redisUrl"`
	Reauth       bool         `json:"reauth" yaml:"reauth"`
	Listen       string       `json:"listen" yaml:"listen"`
	Verbose      bool         `json:"verbose" yaml:"verbose"`
}

// ApplyChainDefaults fills the chain id and the fields left empty from the
// chain preset
func (c *Config) ApplyChainDefaults() error {
	preset, err := GetChain(c.Chain)
	if err != nil {
		return err
	}
	c.ChainID = preset.ID
	if c.APIURL == "" {
		c.APIURL = preset.APIURL
	}
	if c.LensHub == "" && preset.LensHub != (common.Address{}) {
		c.LensHub = preset.LensHub.Hex()
	}
	return nil
}

// LensHubAddress returns the configured hub contract
func (c *Config) LensHubAddress() common.Address {
	return common.HexToAddress(c.LensHub)
}

// CanSubmit reports whether the contract path is configured
func (c *Config) CanSubmit() bool {
	return c.RPCURL != ""
}

func (c *Config) Validate() error {
	var allErrors field.ErrorList
	if c.APIURL == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("apiUrl"), "apiUrl is required"))
	}
	allErrors = append(allErrors, c.Signer.Validate(field.NewPath("signer"))...)

	if c.CanSubmit() {
		if !common.IsHexAddress(c.LensHub) {
			allErrors = append(allErrors, field.Invalid(field.NewPath("lensHub"), c.LensHub, "lensHub must be a hex address"))
		}
		if c.SubmitterKey == "" && c.Signer.PrivateKey == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("submitterKey"), "submitterKey is required with a remote signer"))
		}
	}

	switch c.Store {
	case StoreMemory:
	case StoreBadger:
		if c.DataDir == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("dataDir"), "dataDir is required for the badger store"))
		}
	case StoreRedis:
		if c.RedisURL == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("redisUrl"), "redisUrl is required for the redis store"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("store"), c.Store,
			[]string{string(StoreMemory), string(StoreBadger), string(StoreRedis)}))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
