package postgres

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/labstock/pkg/config"
)

// Límites del pool cuando la configuración no los fija.
const (
	defaultMaxConns   int32 = 25
	defaultMinConns   int32 = 2
	connMaxLifetime         = time.Hour
	connMaxIdleTime         = 30 * time.Minute
	healthCheckPeriod       = time.Minute
	publicDNSResolver       = "8.8.8.8:53"
)

// NewPool abre el pool de conexiones del libro de inventario y verifica que la base responda.
func NewPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	pc, err := poolConfig(cfg, newIPv4Dialer())
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	return pool, nil
}

// poolConfig arma la configuración sin abrir conexiones. Cada conexión nueva registra el codec
// NUMERIC -> decimal.Decimal y lleva el statement_timeout configurado.
func poolConfig(cfg config.DBConfig, dialer *ipv4Dialer) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	if dialer != nil {
		pc.ConnConfig.DialFunc = dialer.DialContext
	}
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	pc.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		pc.MaxConns = int32(cfg.MaxConns)
	}
	pc.MinConns = min(defaultMinConns, pc.MaxConns)
	pc.MaxConnLifetime = connMaxLifetime
	pc.MaxConnIdleTime = connMaxIdleTime
	pc.HealthCheckPeriod = healthCheckPeriod
	pc.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	return pc, nil
}

// ipv4Dialer conecta por IPv4. Los contenedores sin IPv6 fallan con hosts gestionados
// que publican registros AAAA primero.
type ipv4Dialer struct {
	resolvers []*net.Resolver // se prueban en orden
	dialer    net.Dialer
}

func newIPv4Dialer() *ipv4Dialer {
	public := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "udp", publicDNSResolver)
		},
	}
	return &ipv4Dialer{resolvers: []*net.Resolver{net.DefaultResolver, public}}
}

// DialContext resuelve el host a IPv4 y conecta con tcp4; si no hay IPv4 usa el dial normal.
func (d *ipv4Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ip, err := d.lookup(ctx, host)
	if err != nil {
		return d.dialer.DialContext(ctx, network, addr)
	}
	return d.dialer.DialContext(ctx, "tcp4", net.JoinHostPort(ip, port))
}

// lookup devuelve la primera IPv4 del host. Las IP literales no pasan por DNS.
func (d *ipv4Dialer) lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), nil
		}
		return "", fmt.Errorf("%s no es IPv4", host)
	}
	var lastErr error
	for _, r := range d.resolvers {
		ips, err := r.LookupIP(ctx, "ip4", host)
		if err != nil {
			lastErr = err
			continue
		}
		for _, ip := range ips {
			if v4 := ip.To4(); v4 != nil {
				return v4.String(), nil
			}
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%s sin dirección IPv4", host)
	}
	return "", lastErr
}
