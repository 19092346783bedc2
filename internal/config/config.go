package config

import (
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const appID = "foodshop"

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config настройки процесса из переменных окружения FOODSHOP_*
type Config struct {
	ServeRESTAddress string        `envconfig:"serve_rest_address" default:":9091"`
	Storage          string        `envconfig:"storage" default:"mysql"`
	LogLevel         string        `envconfig:"log_level" default:"info"`
	ShutdownTimeout  time.Duration `envconfig:"shutdown_timeout" default:"5s"`

	DatabaseUser     string `envconfig:"database_user" default:"foodshop"`
	DatabasePassword string `envconfig:"database_password"`
	DatabaseHost     string `envconfig:"database_host" default:"localhost"`
	DatabasePort     int    `envconfig:"database_port" default:"3306"`
	DatabaseName     string `envconfig:"database_name" default:"foodshop"`
	DatabaseMaxConn  int    `envconfig:"database_max_conn" default:"10"`
	AutoMigrate      bool   `envconfig:"auto_migrate" default:"true"`

	// пустой брокер: события только пишутся в лог
	KafkaBroker string `envconfig:"kafka_broker"`
	KafkaTopic  string `envconfig:"kafka_topic" default:"foodshop.orders"`
}

func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process(appID, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse env")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StorageMySQL, StorageMemory:
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log level")
	}
	return nil
}

// Level уровень логирования; Load уже проверил значение
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// DSN строка подключения к MySQL
func (c *Config) DSN() string {
	m := mysql.NewConfig()
	m.User = c.DatabaseUser
	m.Passwd = c.DatabasePassword
	m.Net = "tcp"
	m.Addr = net.JoinHostPort(c.DatabaseHost, strconv.Itoa(c.DatabasePort))
	m.DBName = c.DatabaseName
	return m.FormatDSN()
}
