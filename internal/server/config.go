package server

import (
	"encoding/json"
	"os"
)

type Config struct {
	Port         string   `json:"port"`
	FileLog      string   `json:"fileLog"`
	WorkerSpeed  int      `json:"workerSpeed"`
	WorkerQueue  int      `json:"workerQueue"`
	SweepMinutes int      `json:"sweepMinutes"`
	Ssl          bool     `json:"ssl"`
	SslCert      string   `json:"sslCert"`
	SslKey       string   `json:"sslKey"`
	AllowOrigins []string `json:"allowOrigins"`
	RateLimit    int64    `json:"rateLimit"`
}

var GlobalConfig Config
var PathFile string

func ConfigLoad() {
	GlobalConfig = Config{
		Port:         ":8000",
		FileLog:      "gamebank.log",
		WorkerSpeed:  4,
		WorkerQueue:  64,
		SweepMinutes: 60,
		RateLimit:    100,
	}

	if len(os.Args) > 1 {
		PathFile = os.Args[1]
	} else {
		PathFile = "./config.json"
	}

	configFile, err := os.Open(PathFile)
	if err != nil {
		// Run on defaults when no config file is present.
		SetLogger(GlobalConfig.FileLog)
		return
	}
	defer configFile.Close()
	jsonParser := json.NewDecoder(configFile)
	jsonParser.Decode(&GlobalConfig)

	SetLogger(GlobalConfig.FileLog)
}
