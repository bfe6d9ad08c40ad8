package util

import (
	"net"
	"strings"
)

// lanIPv4 returns the first non-loopback IPv4 address of an interface that
// is up, preferring RFC1918 private addresses.
func lanIPv4() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}

	fallback := ""
	for _, iface := range ifaces {
		if (iface.Flags&net.FlagUp) == 0 || (iface.Flags&net.FlagLoopback) != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			var ip net.IP
			switch v := a.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			ip4 := ip.To4()
			if ip4 == nil {
				continue
			}
			if ip4.IsPrivate() {
				return ip4.String()
			}
			if fallback == "" {
				fallback = ip4.String()
			}
		}
	}
	return fallback
}

// ComposeLANURL builds an http URL for addr, substituting the primary LAN
// IPv4 when addr binds all interfaces. Used for log output only.
func ComposeLANURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	h := strings.TrimSpace(host)
	if h == "" || h == "0.0.0.0" || h == "::" || h == "[::]" {
		if lan := lanIPv4(); lan != "" {
			return "http://" + lan + ":" + port
		}
		return "http://127.0.0.1:" + port
	}
	if strings.Contains(h, ":") && !strings.HasPrefix(h, "[") {
		return "http://[" + h + "]:" + port
	}
	return "http://" + h + ":" + port
}
