// Package services maps well-known port numbers to service names.
package services

// Unknown is the label used when a port has no catalog entry.
const Unknown = "unknown"

// wellKnown is the port to service table. It is never written after init.
var wellKnown = map[uint16]string{
	20:    "FTP Data",
	21:    "FTP",
	22:    "SSH",
	23:    "Telnet",
	25:    "SMTP",
	53:    "DNS",
	80:    "HTTP",
	110:   "POP3",
	143:   "IMAP",
	443:   "HTTPS",
	445:   "SMB",
	465:   "SMTPS",
	587:   "SMTP Submission",
	993:   "IMAPS",
	995:   "POP3S",
	1433:  "MSSQL",
	1521:  "Oracle",
	3306:  "MySQL",
	3389:  "RDP",
	5432:  "PostgreSQL",
	5672:  "AMQP",
	5900:  "VNC",
	6379:  "Redis",
	8080:  "HTTP Proxy",
	8443:  "HTTPS Alt",
	9200:  "Elasticsearch",
	9300:  "Elasticsearch-Transport",
	15672: "RabbitMQ-Management",
	27017: "MongoDB",
}

// Lookup returns the service name for port. ok is false for unrecognized
// ports, which callers should treat as an unknown service.
func Lookup(port uint16) (name string, ok bool) {
	name, ok = wellKnown[port]
	return name, ok
}
