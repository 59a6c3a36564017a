package server

import (
	"flag"
	"fmt"
	"os"
	"path"
	"strconv"
)

const defaultNatsServer = "nats://127.0.0.1:4222"

func envInt(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("Error parsing %v: %v", name, err)
	}

	return n, nil
}

// Args parses common hivenode command line options. Options that are not
// given on the command line are read from HIVENODE_* environment variables.
func Args(args []string, flags *flag.FlagSet) (Options, error) {
	// =============================================
	// Command line options
	// =============================================
	if flags == nil {
		flags = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	}

	// configuration options
	flagDebugHTTP := flags.Bool("debugHttp", false, "dump http requests")
	flagDebugLifecycle := flags.Bool("debugLifecycle", false, "debug program lifecycle")
	flagNatsServer := flags.String("natsServer", defaultNatsServer, "NATS Server")
	flagNatsDisableServer := flags.Bool("natsDisableServer", false, "disable NATS server (if you want to run NATS separately)")
	flagStore := flags.String("store", "hivenode.sqlite", "store file, default hivenode.sqlite")
	flagResetStore := flags.Bool("resetStore", false, "permanently wipe data in store at start-up")
	flagAuthToken := flags.String("token", "", "auth token")
	flagID := flags.String("id", "", "unique instance ID, only used when the store is created")

	if err := flags.Parse(args); err != nil {
		return Options{}, err
	}

	// =============================================
	// General Setup
	// =============================================

	dataDir := os.Getenv("HIVENODE_DATA")
	if dataDir == "" {
		dataDir = "./"
	}

	storeFilePath := *flagStore
	if storeFilePath != ":memory:" && !path.IsAbs(storeFilePath) {
		storeFilePath = path.Join(dataDir, storeFilePath)
	}

	// =============================================
	// NATS stuff
	// =============================================
	natsPort, err := envInt("HIVENODE_NATS_PORT", 4222)
	if err != nil {
		return Options{}, err
	}

	natsHTTPPort, err := envInt("HIVENODE_NATS_HTTP_PORT", 8222)
	if err != nil {
		return Options{}, err
	}

	natsServer := *flagNatsServer
	// only consider env if command line option is something different
	// that default
	if natsServer == defaultNatsServer {
		natsServerE := os.Getenv("HIVENODE_NATS_SERVER")
		if natsServerE != "" {
			natsServer = natsServerE
		}
	}

	natsTLSTimeout := 0.5
	if s := os.Getenv("HIVENODE_NATS_TLS_TIMEOUT"); s != "" {
		natsTLSTimeout, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return Options{}, fmt.Errorf("Error parsing nats TLS timeout: %v", err)
		}
	}

	authToken := os.Getenv("HIVENODE_AUTH_TOKEN")
	if *flagAuthToken != "" {
		authToken = *flagAuthToken
	}

	port := os.Getenv("HIVENODE_PORT")
	if port == "" {
		port = "8118"
	}

	return Options{
		StoreFile:         storeFilePath,
		ResetStore:        *flagResetStore,
		DataDir:           dataDir,
		HTTPPort:          port,
		DebugHTTP:         *flagDebugHTTP,
		DebugLifecycle:    *flagDebugLifecycle,
		NatsServer:        natsServer,
		NatsDisableServer: *flagNatsDisableServer,
		NatsPort:          natsPort,
		NatsHTTPPort:      natsHTTPPort,
		NatsTLSCert:       os.Getenv("HIVENODE_NATS_TLS_CERT"),
		NatsTLSKey:        os.Getenv("HIVENODE_NATS_TLS_KEY"),
		NatsTLSTimeout:    natsTLSTimeout,
		AuthToken:         authToken,
		ID:                *flagID,
	}, nil
}
