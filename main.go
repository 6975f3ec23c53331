package main

import (
	"encoding/base64"
	"flag"
	"net/http"
	"os"

	"git.fiblab.net/sim/syncer/v3"
	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/task"
	"github.com/tsinghua-fib-lab/agentsociety-hdmap-oss/utils/config"
	"gopkg.in/yaml.v2"
)

var (
	// 分布式模式syncer地址，如果设置为空则激活独立部署模式
	syncerAddr = flag.String("syncer", "", "syncer address (empty means standalone mode), e.g. http://localhost:53001")
	// 模拟任务名
	job = flag.String("job", "job0", "the name of the whole simulation task")
	// 本程序监听的gRPC地址
	grpcAddr = flag.String("listen", ":51102", "gRPC listening address")
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// 地图加载的缓存地址，设置为空则禁用缓存功能
	cacheDir = flag.String("cache", "data/", "input cache dir path (empty means disable cache)")
	// 不连接syncer，直接运行到结束步
	offline = flag.Bool("offline", false, "run without syncer until the last step")
	// 路网顶点的CSV输出路径，为空则不输出
	roadnetDump = flag.String("roadnet.dump", "", "dump routing vertices as csv to this path")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "hdmap")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置
	var c config.Config
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Panic("config file or config data must be specified")
	}
	if err := yaml.UnmarshalStrict(file, &c); err != nil {
		log.Panicf("config file load err: %v", err)
	}
	log.Infof("%+v", c)

	if c.Metrics.Listen != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Infof("serve metrics at %s/metrics", c.Metrics.Listen)
			if err := http.ListenAndServe(c.Metrics.Listen, mux); err != nil {
				log.Errorf("metrics server stopped: %v", err)
			}
		}()
	}

	sidecar := syncer.NewSidecar(task.SelfName, *grpcAddr, *syncerAddr)
	t := task.NewContext(*job, *cacheDir, c, sidecar, !*offline)
	defer t.Release()

	if *roadnetDump != "" {
		f, err := os.Create(*roadnetDump)
		if err != nil {
			log.Panicf("create %s: %v", *roadnetDump, err)
		}
		if err := t.DumpRoadNetwork(f); err != nil {
			log.Errorf("dump road network: %v", err)
		}
		f.Close()
	}

	if *offline {
		t.RunOffline()
		return
	}
	t.Run()
}
