package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	"github.com/beemon/hivenode/client"
	"github.com/beemon/hivenode/data"
	hnats "github.com/beemon/hivenode/nats"
	"github.com/beemon/hivenode/server"
	"github.com/nats-io/nats.go"
	"github.com/oklog/run"
)

// goreleaser will replace version with Git version. You can also pass version
// into the version into the go build:
//
//	go build -ldflags="-X main.version=1.2.3"
var version = "Development"

const defaultNatsServer = "nats://localhost:4222"

func main() {
	// global options
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagVersion := flags.Bool("version", false, "Print app version")
	flags.Usage = func() {
		fmt.Println("usage: hivenode [OPTION]... COMMAND [OPTION]...")
		fmt.Println("Global options:")
		flags.PrintDefaults()
		fmt.Println()
		fmt.Println("Available commands:")
		fmt.Println("  - serve (start the hivenode server, default)")
		fmt.Println("  - export (export nodes to YAML on stdout)")
		fmt.Println("  - import (import nodes from a YAML file)")
		fmt.Println("  - duplicate (copy a node and its children)")
		fmt.Println("  - log (log node changes)")
	}

	_ = flags.Parse(os.Args[1:])

	if *flagVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// extract sub command and its arguments
	args := flags.Args()

	if len(args) < 1 {
		// run serve command by default
		args = []string{"serve"}
	}

	switch args[0] {
	case "serve":
		log.Printf("hivenode %v\n", version)
		if err := runServer(args[1:]); err != nil {
			log.Println("hivenode stopped, reason: ", err)
		}
	case "export":
		runExport(args[1:])
	case "import":
		runImport(args[1:])
	case "duplicate":
		runDuplicate(args[1:])
	case "log":
		runLog(args[1:])
	default:
		log.Fatal("Unknown command; options: serve, export, import, duplicate, log")
	}
}

func runServer(args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	options, err := server.Args(args, flags)
	if err != nil {
		return err
	}

	options.AppVersion = version

	var g run.Group

	s, err := server.NewServer(options)
	if err != nil {
		return fmt.Errorf("Error starting server: %v", err)
	}

	g.Add(s.Run, s.Stop)

	g.Add(run.SignalHandler(context.Background(),
		syscall.SIGINT, syscall.SIGTERM))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*9)

	// add check to make sure server started
	chStartCheck := make(chan struct{})
	g.Add(func() error {
		err := s.WaitStart(ctx)
		if err != nil {
			return errors.New("Timeout waiting for hivenode to start")
		}
		log.Println("hivenode started, http api: ", s.HTTPAddr())
		<-chStartCheck
		return nil
	}, func(err error) {
		cancel()
		close(chStartCheck)
	})

	return g.Run()
}

// connect parses the connection flags shared by the client commands
func connect(flags *flag.FlagSet, args []string) *nats.Conn {
	flagNatsServer := flags.String("natsServer", defaultNatsServer, "NATS Server")
	flagAuthToken := flags.String("token", "", "Auth token")

	if err := flags.Parse(args); err != nil {
		log.Fatal("error: ", err)
	}

	// only consider env if command line option is something different
	// that default
	natsServer := *flagNatsServer
	if natsServer == defaultNatsServer {
		natsServerE := os.Getenv("HIVENODE_NATS_SERVER")
		if natsServerE != "" {
			natsServer = natsServerE
		}
	}

	authToken := *flagAuthToken
	if authToken == "" {
		authToken = os.Getenv("HIVENODE_AUTH_TOKEN")
	}

	nc, err := client.Connect(client.ConnectOptions{
		URI:       natsServer,
		AuthToken: authToken,
	})
	if err != nil {
		log.Fatal("Error connecting to NATS server: ", err)
	}

	return nc
}

func runExport(args []string) {
	flags := flag.NewFlagSet("export", flag.ExitOnError)
	flagRoot := flags.String("root", "", "ID of the node to export, blank exports all")
	nc := connect(flags, args)
	defer nc.Close()

	y, err := client.ExportNodes(nc, *flagRoot)
	if err != nil {
		log.Fatal("Error exporting nodes: ", err)
	}

	if _, err := os.Stdout.Write(y); err != nil {
		log.Fatal("Error writing export: ", err)
	}
}

func runImport(args []string) {
	flags := flag.NewFlagSet("import", flag.ExitOnError)
	flagParent := flags.String("parent", "", "ID of the parent node, blank imports root nodes")
	nc := connect(flags, args)
	defer nc.Close()

	if flags.NArg() < 1 {
		log.Fatal("usage: hivenode import [-parent id] file.yaml")
	}

	y, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		log.Fatal("Error reading import file: ", err)
	}

	err = client.ImportNodes(nc, *flagParent, y)
	if err != nil {
		log.Fatal("Error importing nodes: ", err)
	}

	log.Println("Import success!")
}

func runDuplicate(args []string) {
	flags := flag.NewFlagSet("duplicate", flag.ExitOnError)
	flagID := flags.String("id", "", "ID of the node to copy")
	flagParent := flags.String("parent", "", "ID of the new parent, blank creates a root node")
	nc := connect(flags, args)
	defer nc.Close()

	if *flagID == "" {
		log.Fatal("usage: hivenode duplicate -id id [-parent id]")
	}

	newID, err := client.DuplicateNode(nc, *flagID, *flagParent)
	if err != nil {
		log.Fatal("Error duplicating node: ", err)
	}

	log.Println("Duplicated node: ", newID)
}

func runLog(args []string) {
	flags := flag.NewFlagSet("log", flag.ExitOnError)
	nc := connect(flags, args)
	defer nc.Close()

	subChanged, err := hnats.SubscribeNodeChanged(nc, func(n data.Node) {
		log.Println("CHANGED", n)
	})
	if err != nil {
		log.Fatal("Error subscribing to node changes: ", err)
	}
	defer subChanged.Unsubscribe()

	subDeleted, err := hnats.SubscribeNodeDeleted(nc, func(n data.Node) {
		log.Println("DELETED", n)
	})
	if err != nil {
		log.Fatal("Error subscribing to node deletes: ", err)
	}
	defer subDeleted.Unsubscribe()

	var g run.Group
	g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))
	err = g.Run()
	log.Println("log stopped: ", err)
}
