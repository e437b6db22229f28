package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/zkpoex/disclosure/internal/appinit"
	"github.com/zkpoex/disclosure/internal/controller"
	"github.com/zkpoex/disclosure/internal/metrics"
	"github.com/zkpoex/disclosure/internal/rounds"
	"github.com/zkpoex/disclosure/internal/service"
)

func main() {
	var configPath string

	app := &cli.App{
		Name:  "disclosure",
		Usage: "Confidential key disclosure with zero-knowledge proofs",
		Commands: []*cli.Command{
			{
				Name:    "timelock",
				Aliases: []string{"t"},
				Usage:   "Time-lock a fresh key to a future beacon round and prove the exploit",
				Flags: []cli.Flag{
					newConfFlag(&configPath),
					&cli.StringFlag{
						Name:     "calldata",
						Usage:    "calldata of the exploit transaction",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "blockchain-settings",
						Usage: "JSON blockchain settings (defaults to an all-zero mainnet context)",
						Value: service.DefaultBlockchainSettings,
					},
					&cli.StringFlag{
						Name:    "duration",
						Aliases: []string{"d"},
						Usage:   "how long until the key is disclosed, e.g. 90d, 1h 30m",
						Value:   rounds.DefaultDuration,
					},
					&cli.Uint64Flag{
						Name:    "round",
						Aliases: []string{"r"},
						Usage:   "disclose at this round instead of after --duration",
					},
				},
				Action: getTimeLockFunc(&configPath),
			},
			{
				Name:    "ecdh",
				Aliases: []string{"e"},
				Usage:   "Encrypt the stored key for a counterparty and prove it",
				Flags: []cli.Flag{
					newConfFlag(&configPath),
					&cli.StringFlag{Name: "local-sk", Usage: "local private key (hex)"},
					&cli.StringFlag{Name: "local-sk-pem", Usage: "path to the local private key (PEM)"},
					&cli.StringFlag{Name: "vendor-pk", Usage: "vendor public key, uncompressed SEC1 (hex)"},
					&cli.StringFlag{Name: "vendor-pk-pem", Usage: "path to the vendor public key (PEM)"},
				},
				Action: getEcdhFunc(&configPath),
			},
			{
				Name:  "round",
				Usage: "Print the beacon round a time-lock would bind to",
				Flags: []cli.Flag{
					newConfFlag(&configPath),
					&cli.StringFlag{
						Name:    "duration",
						Aliases: []string{"d"},
						Value:   rounds.DefaultDuration,
					},
					&cli.Uint64Flag{
						Name:    "round",
						Aliases: []string{"r"},
					},
				},
				Action: getRoundFunc(&configPath),
			},
			{
				Name:  "unlock",
				Usage: "Recover the time-locked key once its round has been published",
				Flags: []cli.Flag{
					newConfFlag(&configPath),
				},
				Action: getUnlockFunc(&configPath),
			},
			{
				Name:    "serve",
				Aliases: []string{"s"},
				Usage:   "Start as server",
				Flags: []cli.Flag{
					newConfFlag(&configPath),
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "overrides server.port in the config",
					},
				},
				Action: getServeFunc(&configPath),
			},
		},
	}

	// Run the cli helper
	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}

func newConfFlag(configPath *string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "conf",
		Aliases:     []string{"c"},
		Value:       "disclosure.yaml",
		EnvVars:     []string{"DSC_CONF"},
		Destination: configPath,
	}
}

// loadConfig reads the config file. A missing file is only an error when the path was given explicitly.
func loadConfig(c *cli.Context, configPath string) (*appinit.DisclosureInfo, error) {
	var info *appinit.DisclosureInfo
	if _, err := os.Stat(configPath); os.IsNotExist(err) && !c.IsSet("conf") {
		info = appinit.DefaultDisclosureInfo()
	} else {
		info, err = appinit.LoadDisclosureInfo(configPath)
		if err != nil {
			return nil, err
		}
	}

	if err := appinit.SetupLogger(info); err != nil {
		return nil, err
	}

	return info, nil
}

func setup(c *cli.Context, configPath string) (*appinit.DisclosureInfo, *appinit.Services, error) {
	info, err := loadConfig(c, configPath)
	if err != nil {
		return nil, nil, err
	}

	if err = appinit.SetupSnowflakeNode(1); err != nil {
		return nil, nil, err
	}

	services, err := appinit.BuildServices(info)
	if err != nil {
		return nil, nil, err
	}

	return info, services, nil
}

// writeMetrics dumps the metrics of a batch run. Failing to do so does not fail the run.
func writeMetrics(info *appinit.DisclosureInfo) {
	if err := metrics.WriteTextfile(info.Metrics.Textfile); err != nil {
		log.Warnln(err)
	}
}

func getTimeLockFunc(configPath *string) func(c *cli.Context) error {
	timeLockFunc := func(c *cli.Context) error {
		info, services, err := setup(c, *configPath)
		if err != nil {
			return err
		}
		defer writeMetrics(info)

		req := &service.TimeLockRequest{
			Calldata:           c.String("calldata"),
			BlockchainSettings: c.String("blockchain-settings"),
			Round:              c.Uint64("round"),
		}
		if req.Round == 0 {
			d, err := rounds.ParseDuration(c.String("duration"))
			if err != nil {
				return err
			}
			req.Duration = &d
		}

		result, err := services.TimeLock.Run(c.Context, req)
		if err != nil {
			return err
		}

		log.Infof("测试夹具已写入 %v", result.FixturePath)
		log.Infof("证明已写入 %v", result.ProofPath)
		return nil
	}

	return timeLockFunc
}

func getEcdhFunc(configPath *string) func(c *cli.Context) error {
	ecdhFunc := func(c *cli.Context) error {
		info, services, err := setup(c, *configPath)
		if err != nil {
			return err
		}
		defer writeMetrics(info)

		req, err := buildKeyExchangeRequest(c, info, services.Curve.Name())
		if err != nil {
			return err
		}

		result, err := services.KeyExchange.Run(c.Context, req)
		if err != nil {
			return err
		}

		log.Infof("测试夹具已写入 %v", result.FixturePath)
		return nil
	}

	return ecdhFunc
}

// buildKeyExchangeRequest picks each key from, in order, the hex flag, the PEM flag, the PEM file in the config and
// finally the configured seed.
func buildKeyExchangeRequest(c *cli.Context, info *appinit.DisclosureInfo, curve string) (*service.KeyExchangeRequest, error) {
	localSeed, vendorSeed, err := info.Seeds()
	if err != nil {
		return nil, err
	}
	req := &service.KeyExchangeRequest{LocalSeed: localSeed, VendorSeed: vendorSeed}

	location := &appinit.KeyPairLocation{}
	if info.KeyExchange.Keys != nil {
		*location = *info.KeyExchange.Keys
	}
	if c.IsSet("local-sk-pem") {
		location.PrivateKey = c.String("local-sk-pem")
	}
	if c.IsSet("vendor-pk-pem") {
		location.PublicKey = c.String("vendor-pk-pem")
	}

	req.LocalPrivateKey, req.VendorPublicKey, err = appinit.LoadKeyExchangeKeys(location, curve)
	if err != nil {
		return nil, err
	}

	if c.IsSet("local-sk") {
		req.LocalPrivateKey, err = decodeHexFlag(c.String("local-sk"))
		if err != nil {
			return nil, errors.Wrap(err, "无法解析 --local-sk")
		}
	}
	if c.IsSet("vendor-pk") {
		req.VendorPublicKey, err = decodeHexFlag(c.String("vendor-pk"))
		if err != nil {
			return nil, errors.Wrap(err, "无法解析 --vendor-pk")
		}
	}

	return req, nil
}

func decodeHexFlag(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
}

func getRoundFunc(configPath *string) func(c *cli.Context) error {
	roundFunc := func(c *cli.Context) error {
		_, services, err := setup(c, *configPath)
		if err != nil {
			return err
		}

		var d *time.Duration
		if c.Uint64("round") == 0 {
			duration, err := rounds.ParseDuration(c.String("duration"))
			if err != nil {
				return err
			}
			d = &duration
		}

		round, chainInfo, err := services.TimeLock.RoundFor(c.Context, d, c.Uint64("round"))
		if err != nil {
			return err
		}

		log.Infof("链 %v, 周期 %v", chainInfo.Hash, chainInfo.Period)
		fmt.Println(round)
		return nil
	}

	return roundFunc
}

func getUnlockFunc(configPath *string) func(c *cli.Context) error {
	unlockFunc := func(c *cli.Context) error {
		_, services, err := setup(c, *configPath)
		if err != nil {
			return err
		}

		key, err := services.TimeLock.Unlock(c.Context)
		if err != nil {
			return err
		}

		fmt.Println(hex.EncodeToString(key))
		return nil
	}

	return unlockFunc
}

func getServeFunc(configPath *string) func(c *cli.Context) error {
	serveFunc := func(c *cli.Context) error {
		info, services, err := setup(c, *configPath)
		if err != nil {
			return err
		}

		port := info.Server.Port
		if c.IsSet("port") {
			port = c.Int("port")
		}

		// Instantiate controllers
		pingPongController := &controller.PingPongController{GroupName: "/"}

		fixtureController := &controller.FixtureController{
			GroupName:  "/fixtures",
			FixtureSvc: services.Fixture,
		}

		roundController := &controller.RoundController{
			GroupName:   "/round",
			TimeLockSvc: services.TimeLock,
		}

		sessionController := &controller.SessionController{
			GroupName:  "/sessions",
			SessionSvc: services.Session,
		}

		metricsController := &controller.MetricsController{GroupName: "/metrics"}

		// Register controller handlers
		router := gin.Default()
		router.Use(controller.CORSMiddleware())
		apiv1Group := router.Group("/api/v1")
		for _, ctrl := range []controller.Controller{pingPongController, fixtureController, roundController, sessionController} {
			if err = controller.RegisterHandlers(apiv1Group, ctrl); err != nil {
				return err
			}
		}
		if err = controller.RegisterHandlers(&router.RouterGroup, metricsController); err != nil {
			return err
		}

		// Start the HTTP server
		httpServer := &http.Server{
			Addr:    fmt.Sprintf(":%v", port),
			Handler: router,
		}

		chanError := make(chan error)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				chanError <- errors.Wrap(err, "无法启动 HTTP 服务器")
			}
		}()
		log.Infof("HTTP 服务器已在端口 %v 启动", port)

		// Listen Ctrl+C signals. On receiving a signal stops the app elegantly
		chanQuit := make(chan os.Signal, 1)
		signal.Notify(chanQuit, os.Interrupt)
		select {
		case err := <-chanError:
			return err
		case <-chanQuit:
			log.Infoln("收到 Ctrl+C 信号，正在退出程序...")

			// Stop the HTTP server elegantly
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			log.Infoln("正在停止 HTTP 服务器...")
			if err := httpServer.Shutdown(ctx); err != nil {
				return errors.Wrap(err, "无法正常停止 HTTP 服务器")
			}
		}

		return nil
	}

	return serveFunc
}
