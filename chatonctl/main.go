package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/docopt/docopt-go"
	"github.com/golang/glog"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"github.com/bringyour/chaton/chatonctl/ui"
	"github.com/bringyour/chaton/comet"
)

func main() {
	usage := fmt.Sprintf(
		`Chaton chat client.

Settings are read from the config file, then .env and CHATON_* variables, then options.
The count and post urls default to <url>var/seq and <url>chaton-poster.

Usage:
    chatonctl run [--config=<config>] [--url=<url>] [--room=<room>]
        [--nick=<nick>] [--data_dir=<data_dir>] [--metrics_addr=<metrics_addr>] [--plain]
        [--log_dir=<log_dir>] [--v=<v>]
    chatonctl post [--config=<config>] [--url=<url>] [--data_dir=<data_dir>]
        [--nick=<nick>] [--remember] <text>
    chatonctl count [--config=<config>] [--url=<url>]
    chatonctl version

Options:
    -h --help                      Show this screen.
    --version                      Show version.
    --config=<config>              Yaml config file.
    --url=<url>                    Room url.
    --room=<room>                  Room name shown in the title.
    --nick=<nick>                  Defaults to the remembered nick.
    --remember                     Remember the nick.
    --data_dir=<data_dir>          Keep the remembered nick here. Default is memory only.
    --metrics_addr=<metrics_addr>  Serve prometheus metrics on this address.
    --plain                        Write lines instead of the full screen view.
    --log_dir=<log_dir>            Log directory when not logging to stderr. Default %s.
    --v=<v>                        Log verbosity [default: 0].`,
		os.TempDir(),
	)

	opts, err := docopt.ParseArgs(usage, os.Args[1:], comet.Version)
	if err != nil {
		panic(err)
	}

	if run_, _ := opts.Bool("run"); run_ {
		run(opts)
	} else if post_, _ := opts.Bool("post"); post_ {
		post(opts)
	} else if count_, _ := opts.Bool("count"); count_ {
		count(opts)
	} else if version_, _ := opts.Bool("version"); version_ {
		fmt.Println(comet.Version)
	}
}

func exitOnError(err error) {
	if err != nil {
		glog.Flush()
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func initGlog(opts docopt.Opts, toStderr bool) {
	if toStderr {
		flag.Set("logtostderr", "true")
	} else {
		flag.Set("logtostderr", "false")
		// keep the screen clean
		flag.Set("stderrthreshold", "FATAL")
	}
	if logDir, err := opts.String("--log_dir"); err == nil && logDir != "" {
		flag.Set("log_dir", logDir)
	}
	if v, err := opts.String("--v"); err == nil {
		flag.Set("v", v)
	}
	flag.CommandLine.Parse([]string{})
}

func loadConfig(opts docopt.Opts) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	configPath, _ := opts.String("--config")
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if url, err := opts.String("--url"); err == nil && url != "" {
		config.Url = url
	}
	if room, err := opts.String("--room"); err == nil && room != "" {
		config.Room = room
	}
	if dataDir, err := opts.String("--data_dir"); err == nil && dataDir != "" {
		config.DataDir = dataDir
	}
	if metricsAddr, err := opts.String("--metrics_addr"); err == nil && metricsAddr != "" {
		config.MetricsAddr = metricsAddr
	}
	if plain, _ := opts.Bool("--plain"); plain {
		config.Plain = true
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go comet.HandleError(func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			glog.Errorf("[metrics]%s\n", err)
		}
	})
	go func() {
		<-ctx.Done()
		server.Close()
	}()
}

func run(opts docopt.Opts) {
	config, err := loadConfig(opts)
	exitOnError(err)

	plain := config.Plain || !term.IsTerminal(int(os.Stdout.Fd()))
	initGlog(opts, plain)
	defer glog.Flush()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	nickStore, err := comet.OpenNickStore(config.DataDir, config.CookiePath)
	exitOnError(err)
	defer nickStore.Close()

	settings := config.ClientSettings()
	if config.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		settings.MetricsRegisterer = registry
		serveMetrics(ctx, config.MetricsAddr, registry)
	}

	nick, _ := opts.String("--nick")
	var navigateUrl string
	if plain {
		navigateUrl, err = runPlain(ctx, config, settings, nickStore, nick)
	} else {
		navigateUrl, err = runTui(ctx, config, settings, nickStore, nick)
	}
	exitOnError(err)

	if navigateUrl != "" {
		// release the store before the process image is replaced
		nickStore.Close()
		exitOnError(reload(navigateUrl, config.Version))
	}
}

// the monitor runs for the whole session since a line terminal has no focus signal.
// each stdin line is posted.
func runPlain(
	ctx context.Context,
	config *Config,
	settings *comet.ClientSettings,
	nickStore *comet.NickStore,
	nick string,
) (string, error) {
	cancelCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	presentation := ui.NewPlain(os.Stdout, func(url string) {
		cancel()
	})
	client := comet.NewClient(cancelCtx, config.Endpoints(), presentation, nickStore, settings)
	defer client.Close()

	remember := false
	if nick == "" {
		nick, remember = client.Nickname()
	}

	client.Start()
	client.MonitorRun()

	go comet.HandleError(func() {
		readLines(cancelCtx, os.Stdin, func(line string) {
			client.Submit(nick, line, remember)
		})
	})

	select {
	case <-cancelCtx.Done():
	case <-client.Done():
	}
	return presentation.NavigateUrl(), nil
}

func readLines(ctx context.Context, in io.Reader, callback func(string)) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		callback(scanner.Text())
	}
}

func runTui(
	ctx context.Context,
	config *Config,
	settings *comet.ClientSettings,
	nickStore *comet.NickStore,
	nick string,
) (string, error) {
	var client *comet.Client

	remember := false
	if nick == "" {
		var err error
		nick, remember, err = nickStore.Load()
		if err != nil {
			glog.Infof("[run]could not load remembered nick (%s)\n", err)
		}
	}

	model := ui.NewModel(ui.Handlers{
		Focus: func() {
			client.MonitorStop()
		},
		Blur: func() {
			client.MonitorRun()
		},
		Submit: func(nick string, text string, remember bool) {
			client.Submit(nick, text, remember)
		},
	}, nick, remember)
	program := tea.NewProgram(
		model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithReportFocus(),
	)

	client = comet.NewClient(ctx, config.Endpoints(), ui.NewTui(program), nickStore, settings)
	defer client.Close()
	glog.Infof("[run]%s\n", client.InstanceId())

	client.Start()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return "", err
	}
	return model.NavigateUrl(), nil
}

func post(opts docopt.Opts) {
	config, err := loadConfig(opts)
	exitOnError(err)
	initGlog(opts, true)
	defer glog.Flush()

	nickStore, err := comet.OpenNickStore(config.DataDir, config.CookiePath)
	exitOnError(err)
	defer nickStore.Close()

	nick, _ := opts.String("--nick")
	if nick == "" {
		nick, _, err = nickStore.Load()
		exitOnError(err)
	}
	text, _ := opts.String("<text>")
	if nick == "" || text == "" {
		exitOnError(comet.ErrEmptyPost)
	}
	if remember, _ := opts.Bool("--remember"); remember {
		exitOnError(nickStore.Remember(nick))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	api := comet.NewCometApiWithDefaults(ctx, config.Endpoints(), comet.NewId())
	defer api.Close()

	_, err = comet.TraceWithReturnError("[post]", func() (*comet.PostResult, error) {
		callback, results := comet.NewBlockingApiCallback[*comet.PostResult]()
		api.Post(nick, text, callback)
		result := <-results
		return result.Result, result.Error
	})
	exitOnError(err)
}

func count(opts docopt.Opts) {
	config, err := loadConfig(opts)
	exitOnError(err)
	initGlog(opts, true)
	defer glog.Flush()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	api := comet.NewCometApiWithDefaults(ctx, config.Endpoints(), comet.NewId())
	defer api.Close()

	n, err := comet.TraceWithReturnError("[count]", func() (int64, error) {
		callback, results := comet.NewBlockingApiCallback[int64]()
		api.FetchCount(callback)
		result := <-results
		return result.Result, result.Error
	})
	exitOnError(err)
	fmt.Println(n)
}
