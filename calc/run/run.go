// Package run implements the main logic for the calc tool in a testable way.
package run

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/toejough/arith"
	"github.com/toejough/arith/discount"
)

// Interfaces - Public

// FileSystem interface for mocking.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
}

// Structs - Public

// Config holds the settings that shape calc's output.
type Config struct {
	// Precision is the number of digits after the decimal point, at most 64; -1
	// prints the shortest representation that round-trips.
	Precision int  `toml:"precision"`
	Verbose   bool `toml:"verbose"`
}

// Structs - Private

type avgCmd struct {
	Numbers []float64 `arg:"positional" help:"values to average"`
}

type binaryCmd struct {
	A float64 `arg:"positional,required" help:"left operand"`
	B float64 `arg:"positional,required" help:"right operand"`
}

// cliArgs defines the command-line arguments for calc.
type cliArgs struct {
	Add      *binaryCmd   `arg:"subcommand:add"      help:"print a + b"`
	Sub      *binaryCmd   `arg:"subcommand:sub"      help:"print a - b"`
	Mul      *binaryCmd   `arg:"subcommand:mul"      help:"print a * b"`
	Div      *binaryCmd   `arg:"subcommand:div"      help:"print a / b"`
	Pow      *powCmd      `arg:"subcommand:pow"      help:"print base raised to an integer exponent"`
	Avg      *avgCmd      `arg:"subcommand:avg"      help:"print the mean of the given values"`
	Discount *discountCmd `arg:"subcommand:discount" help:"print price reduced by rate (0 to 1)"`

	Config    string `arg:"--config"     help:"TOML file with default settings (env: CALC_CONFIG)"`
	Precision *int   `arg:"--precision"  help:"digits after the decimal point, -1 for shortest (env: CALC_PRECISION)"`
	Verbose   bool   `arg:"-v,--verbose" help:"log evaluation steps to stderr (env: CALC_VERBOSE)"`
}

type discountCmd struct {
	Price float64 `arg:"positional,required" help:"original price"`
	Rate  float64 `arg:"positional,required" help:"discount rate between 0 and 1"`
}

type powCmd struct {
	Base     float64 `arg:"positional,required" help:"base"`
	Exponent int     `arg:"positional,required" help:"integer exponent"`
}

// Functions - Public

// DefaultConfig returns the settings used when no file, environment, or flag overrides them.
func DefaultConfig() Config {
	return Config{Precision: -1}
}

// Run executes the calc tool logic. It takes command-line arguments, an environment variable getter, a FileSystem
// for reading the optional config file, and the output streams. The result of the requested operation is written to
// stdout; diagnostics go to stderr. It returns an error if parsing, configuration, or the operation fails.
func Run(args []string, getEnv func(string) string, fileSys FileSystem, stdout, stderr io.Writer) error {
	parser, parsed, err := parseArgs(args, stdout)
	if err != nil {
		return err
	}

	if parser == nil {
		// help was requested and already printed
		return nil
	}

	cfg, err := resolveConfig(parsed, getEnv, fileSys)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Verbose, stderr)

	names := parser.SubcommandNames()
	if len(names) == 0 {
		parser.WriteUsage(stderr)

		return errNoOperation
	}

	operation := names[0]
	logger.Debug().Str("operation", operation).Int("precision", cfg.Precision).Msg("evaluating")

	result, err := evaluate(operation, parsed)
	if err != nil {
		logger.Debug().Str("operation", operation).Err(err).Msg("evaluation failed")

		return fmt.Errorf("%s: %w", operation, err)
	}

	logger.Debug().Str("operation", operation).Float64("result", result).Msg("evaluated")

	_, err = fmt.Fprintln(stdout, strconv.FormatFloat(result, 'f', cfg.Precision, 64))
	if err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	return nil
}

// Functions - Private

// escapeNegativeOperands keeps negative numbers from being read as flags: a negative
// --precision value is joined to its flag, and "--" is inserted before the first
// negative operand. Flags must precede operands.
func escapeNegativeOperands(args []string) []string {
	escaped := make([]string, 0, len(args)+1)

	for i := 0; i < len(args); i++ {
		current := args[i]

		switch {
		case current == "--":
			return append(escaped, args[i:]...)
		case current == "--precision" && i+1 < len(args) && isNegativeNumber(args[i+1]):
			escaped = append(escaped, current+"="+args[i+1])
			i++
		case isNegativeNumber(current):
			escaped = append(escaped, "--")

			return append(escaped, args[i:]...)
		default:
			escaped = append(escaped, current)
		}
	}

	return escaped
}

// evaluate runs the named operation against the parsed operands.
func evaluate(operation string, parsed cliArgs) (float64, error) {
	switch operation {
	case "add":
		return arith.Add(parsed.Add.A, parsed.Add.B), nil
	case "sub":
		return arith.Subtract(parsed.Sub.A, parsed.Sub.B), nil
	case "mul":
		return arith.Multiply(parsed.Mul.A, parsed.Mul.B), nil
	case "div":
		return arith.Divide(parsed.Div.A, parsed.Div.B)
	case "pow":
		return arith.Power(parsed.Pow.Base, parsed.Pow.Exponent)
	case "avg":
		return arith.Average(parsed.Avg.Numbers)
	case "discount":
		return discount.ComputeDiscountedPrice(parsed.Discount.Price, discount.Fixed(parsed.Discount.Rate))
	default:
		return 0, fmt.Errorf("%w: %q", errNoOperation, operation)
	}
}

func isNegativeNumber(s string) bool {
	if !strings.HasPrefix(s, "-") {
		return false
	}

	_, err := strconv.ParseFloat(s, 64)

	return err == nil
}

// loadConfigFile reads settings from a TOML file on top of cfg.
func loadConfigFile(path string, cfg Config, fileSys FileSystem) (Config, error) {
	data, err := fileSys.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

func newLogger(verbose bool, stderr io.Writer) zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}}).
		Level(zerolog.DebugLevel)
}

// parseArgs parses command-line arguments into cliArgs. A nil parser with a nil
// error means help was printed.
func parseArgs(args []string, stdout io.Writer) (*arg.Parser, cliArgs, error) {
	var parsed cliArgs

	parser, err := arg.NewParser(arg.Config{Program: "calc"}, &parsed)
	if err != nil {
		return nil, cliArgs{}, fmt.Errorf("failed to create argument parser: %w", err)
	}

	var cmdArgs []string
	if len(args) > 1 {
		cmdArgs = escapeNegativeOperands(args[1:])
	}

	err = parser.Parse(cmdArgs)
	if errors.Is(err, arg.ErrHelp) {
		parser.WriteHelp(stdout)

		return nil, cliArgs{}, nil
	}

	if err != nil {
		return nil, cliArgs{}, fmt.Errorf("failed to parse arguments: %w", err)
	}

	return parser, parsed, nil
}

// resolveConfig layers the config file, the environment, and flags, in that order.
func resolveConfig(parsed cliArgs, getEnv func(string) string, fileSys FileSystem) (Config, error) {
	cfg := DefaultConfig()

	path := parsed.Config
	if path == "" {
		path = getEnv("CALC_CONFIG")
	}

	if path != "" {
		var err error

		cfg, err = loadConfigFile(path, cfg, fileSys)
		if err != nil {
			return Config{}, err
		}
	}

	if raw := getEnv("CALC_PRECISION"); raw != "" {
		precision, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: CALC_PRECISION=%q", errInvalidEnv, raw)
		}

		cfg.Precision = precision
	}

	if raw := getEnv("CALC_VERBOSE"); raw != "" {
		verbose, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: CALC_VERBOSE=%q", errInvalidEnv, raw)
		}

		cfg.Verbose = verbose
	}

	if parsed.Precision != nil {
		cfg.Precision = *parsed.Precision
	}

	if parsed.Verbose {
		cfg.Verbose = true
	}

	if cfg.Precision < -1 || cfg.Precision > maxPrecision {
		return Config{}, fmt.Errorf("%w, got %d", errBadPrecision, cfg.Precision)
	}

	return cfg, nil
}

// unexported constants.
const (
	maxPrecision = 64
)

// unexported variables.
var (
	errInvalidEnv   = errors.New("invalid environment value")
	errNoOperation  = errors.New("no operation given")
	errBadPrecision = errors.New("precision must be between -1 and 64")
)
