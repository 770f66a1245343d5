package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"creditbridge/config"
	"creditbridge/core/events"
	"creditbridge/core/types"
	"creditbridge/crypto"
	"creditbridge/native/bridge"
	"creditbridge/native/debt"
	"creditbridge/native/ledger"
	"creditbridge/native/messaging"
	"creditbridge/native/oracle"
	"creditbridge/native/passport"
	"creditbridge/native/relay"
	"creditbridge/observability/logging"
	"creditbridge/state"
	"creditbridge/storage"
)

const ownerPassEnv = "CBR_OWNER_PASS"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("CBR_ENV"))
	logger := logging.Setup("creditbridged", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	ownerKey, err := crypto.LoadFromKeystore(cfg.OwnerKeystorePath, os.Getenv(ownerPassEnv))
	if err != nil {
		panic(fmt.Sprintf("Failed to load owner key: %v", err))
	}
	var owner [20]byte
	copy(owner[:], ownerKey.PubKey().Address().Bytes())

	manager := state.NewManager(db)
	emitter := &logEmitter{logger: logger.With(slog.String("component", "events"))}

	prices := oracle.NewManual(time.Duration(cfg.Ledger.MaxPriceAgeSeconds) * time.Second)

	bus := messaging.NewBus()

	ledgerEngine := ledger.NewEngine(owner, cfg.Ledger.MinCreditScore)
	ledgerEngine.SetState(manager)
	ledgerEngine.SetPriceSource(prices)
	ledgerEngine.SetPauses(cfg.Pauses)
	ledgerEngine.SetEmitter(emitter)

	registry := passport.NewRegistry(owner)
	registry.SetState(manager)
	registry.SetPauses(cfg.Pauses)
	registry.SetEmitter(emitter)
	registry.SetAttestedNotifier(ledgerEngine)
	ledgerEngine.SetAttestationSink(registry)

	relayModule := moduleAddress("relay")
	relayEngine := relay.NewEngine(owner, relayModule, cfg.NetworkName, cfg.LedgerNetwork)
	relayEngine.SetState(manager)
	relayEngine.SetSender(bus.Endpoint(cfg.NetworkName, relayModule, "ledger"))
	relayEngine.SetPauses(cfg.Pauses)
	relayEngine.SetEmitter(emitter)
	relayEngine.Policy().AllowDestination(cfg.LedgerNetwork)

	bus.Register(cfg.LedgerNetwork, "ledger", ledger.NewInboundHandler(ledgerEngine))
	ledgerEngine.Policy().AllowSource(cfg.NetworkName)
	ledgerEngine.Policy().TrustSender(relayModule)

	debtModule := moduleAddress("debt")
	ledgerModule := moduleAddress("ledger")
	debtEngine := debt.NewEngine(owner, ledgerModule, cfg.NetworkName, cfg.Fees.SwapFeeBps)
	debtEngine.SetState(manager)
	debtEngine.SetSender(bus.Endpoint(cfg.NetworkName, debtModule, "debt"))
	debtEngine.SetPauses(cfg.Pauses)
	debtEngine.SetEmitter(emitter)
	bus.Register(cfg.NetworkName, "debt", debt.NewInboundHandler(debtEngine))
	ledgerEngine.SetDebtMinter(debt.NewMinter(debtEngine, ledgerModule))

	token := bridge.NewToken(owner)
	token.SetState(manager)
	token.SetPauses(cfg.Pauses)
	token.SetEmitter(emitter)
	if err := token.SetFees(owner, bridge.FeeConfig{SendFeeBps: cfg.Fees.SendFeeBps, ReceiveFeeBps: cfg.Fees.ReceiveFeeBps}); err != nil {
		panic(fmt.Sprintf("Failed to configure bridge fees: %v", err))
	}

	minTransfer, maxTransfer, err := cfg.Transfer.Bounds()
	if err != nil {
		panic(fmt.Sprintf("Failed to parse transfer bounds: %v", err))
	}
	router := bridge.NewRouter(owner, moduleAddress("bridgeRouter"), token, cfg.NetworkName, minTransfer, maxTransfer)
	router.SetState(manager)
	router.SetPauses(cfg.Pauses)
	router.SetEmitter(emitter)

	for _, network := range cfg.AllowedNetworks {
		ledgerEngine.Policy().AllowDestination(network)
		if err := router.AddSupportedChain(owner, network); err != nil {
			logger.Warn("Skipping unsupported chain entry", slog.String("network", network), slog.Any("error", err))
		}
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics listener starting", slog.String("address", cfg.MetricsAddress))
		if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
			logger.Error("Metrics listener stopped", slog.Any("error", err))
		}
	}()

	logger.Info("creditbridged ready",
		slog.String("network", cfg.NetworkName),
		slog.String("ledgerNetwork", cfg.LedgerNetwork),
		slog.String("owner", ownerKey.PubKey().Address().String()),
		slog.String("dataDir", cfg.DataDir),
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("Shutting down")
}

// moduleAddress derives the deterministic custody address for a native module.
func moduleAddress(name string) [20]byte {
	sum := ethcrypto.Keccak256([]byte("creditbridge/module/" + name))
	var addr [20]byte
	copy(addr[:], sum[12:])
	return addr
}

// logEmitter forwards component events into the structured log.
type logEmitter struct {
	logger *slog.Logger
}

type attributed interface {
	Event() *types.Event
}

func (l *logEmitter) Emit(event events.Event) {
	if l == nil || l.logger == nil || event == nil {
		return
	}
	attrs := []any{slog.String("type", event.EventType())}
	if detailed, ok := event.(attributed); ok {
		if e := detailed.Event(); e != nil {
			for k, v := range e.Attributes {
				attrs = append(attrs, slog.String(k, v))
			}
		}
	}
	l.logger.Info("event", attrs...)
}
