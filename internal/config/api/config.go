package apiconfig

import (
	"time"

	"github.com/vetdesk/notify/internal/obs"
	pginfra "github.com/vetdesk/notify/internal/repository/postgres"
	httpapi "github.com/vetdesk/notify/internal/services/api"
	"github.com/vetdesk/notify/internal/services/dispatch/sender"
)

type HTTP struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func (h HTTP) AsServerConfig() httpapi.ServerConfig {
	return httpapi.ServerConfig{Addr: h.Addr, ReadTimeout: h.ReadTimeout, WriteTimeout: h.WriteTimeout}
}

type SMTP struct {
	Addr       string        `mapstructure:"addr"`
	From       string        `mapstructure:"from"`
	User       string        `mapstructure:"user"`
	Password   string        `mapstructure:"password"`
	UseTLS     bool          `mapstructure:"use_tls"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SubjPrefix string        `mapstructure:"subj_prefix"`
}

func (s SMTP) AsSenderConfig() sender.EmailConfig {
	return sender.EmailConfig{
		Addr: s.Addr, From: s.From, User: s.User, Password: s.Password,
		UseTLS: s.UseTLS, Timeout: s.Timeout, SubjPrefix: s.SubjPrefix,
	}
}

type SMS struct {
	Region   string `mapstructure:"region"`
	SenderID string `mapstructure:"sender_id"`
}

func (s SMS) AsSenderConfig() sender.SMSConfig {
	return sender.SMSConfig{Region: s.Region, SenderID: s.SenderID}
}

type Push struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

func (p Push) AsSenderConfig() sender.PushConfig {
	return sender.PushConfig{CredentialsFile: p.CredentialsFile}
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	Env    string `mapstructure:"env"`
}

func (l Log) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{Level: l.Level, Pretty: l.Pretty, Service: "notify-api", Env: l.Env}
}

type OTEL struct {
	Enable      bool    `mapstructure:"enable"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"otlp_endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

func (o OTEL) AsOTELConfig() obs.OTELConfig {
	return obs.OTELConfig{Enable: o.Enable, ServiceName: o.ServiceName, Endpoint: o.Endpoint, SampleRatio: o.SampleRatio}
}

type Config struct {
	DB     pginfra.Config `mapstructure:"db"`
	HTTP   HTTP           `mapstructure:"http"`
	SMTP   SMTP           `mapstructure:"smtp"`
	SMS    SMS            `mapstructure:"sms"`
	Push   Push           `mapstructure:"push"`
	Server Server         `mapstructure:"server"`
	Log    Log            `mapstructure:"log"`
	OTEL   OTEL           `mapstructure:"otel"`
}
