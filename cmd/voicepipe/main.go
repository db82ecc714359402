package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nganlinh4/voicepipe/internal/audio"
	"github.com/nganlinh4/voicepipe/internal/config"
	"github.com/nganlinh4/voicepipe/internal/logger"
	"github.com/nganlinh4/voicepipe/internal/tts"
)

func main() {
	configPath := flag.String("config", "configs/voicepipe.yaml", "配置文件路径")
	listDevices := flag.Bool("list-devices", false, "列出可用输出设备后退出")
	flag.Parse()

	// .env 不存在时静默忽略，配置里的 ${VAR} 直接读环境变量
	_ = godotenv.Load()

	if *listDevices {
		devices, err := audio.ListOutputDevices()
		if err != nil {
			fmt.Fprintf(os.Stderr, "枚举输出设备失败: %v\n", err)
			os.Exit(1)
		}
		for _, d := range devices {
			marker := " "
			if d.Default {
				marker = "*"
			}
			fmt.Printf("%s %s  %s\n", marker, d.ID, d.Name)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infof("[main] VoicePipe 启动中 (method=%s, workers=%d)",
		cfg.TTS.Method, cfg.TTS.Workers)

	m := tts.NewManager(cfg, nil, nil)

	// 输出设备的打断检测回调指向管理器，先建管理器再接设备
	out := audio.NewOutput(audio.OutputConfig{
		SampleRate: tts.PlaybackSampleRate,
		Channels:   2,
		DeviceID:   cfg.Audio.OutputDevice,
		Generation: m.Generation,
	})
	defer out.Close()
	m.SetOutput(out)

	m.RegisterEngine("edge", tts.NewEdgeEngine(cfg.TTS.Edge.Voice))
	if cfg.TTS.Method == "tencent" {
		engine, err := tts.NewTencentEngine(cfg.TTS.Tencent)
		if err != nil {
			fmt.Fprintf(os.Stderr, "初始化腾讯云引擎失败: %v\n", err)
			os.Exit(1)
		}
		m.RegisterEngine("tencent", engine)
	}

	m.Start()
	defer m.Shutdown()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// 标准输入作为简单的交互入口：
	//   文本       追加朗读
	//   !文本      打断并朗读
	//   @文本      实时播报（参与自动追赶）
	//   /stop      立即静音
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case sig := <-sigCh:
			logger.Infof("[main] 收到信号 %v，正在关闭...", sig)
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			handleLine(m, line)
		}
	}
}

func handleLine(m *tts.Manager, line string) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
	case line == "/stop":
		m.Stop()
	case strings.HasPrefix(line, "!"):
		m.SpeakInterrupt(strings.TrimSpace(line[1:]), 0)
	case strings.HasPrefix(line, "@"):
		m.SpeakRealtime(strings.TrimSpace(line[1:]), 0)
	default:
		m.Speak(line, 0)
	}
}
