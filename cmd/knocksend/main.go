// knocksend is a manual test client: it sends one message at a running
// gateway so the challenge, knock and relay paths can be poked by hand.
package main

import (
	"flag"
	"fmt"
	"log"

	"gopkg.in/gomail.v2"
)

func main() {
	host := flag.String("host", "localhost", "gateway host")
	port := flag.Int("port", 2525, "gateway SMTP port")
	from := flag.String("from", "external@otherdomain.com", "sender address")
	to := flag.String("to", "test@example.com", "recipient address (tag it to knock or relay)")
	subject := flag.String("subject", "Test Email from Go", "subject")
	body := flag.String("body", "This is a test email sent using Go!", "body")
	flag.Parse()

	m := gomail.NewMessage()
	m.SetHeader("From", *from)
	m.SetHeader("To", *to)
	m.SetHeader("Subject", *subject)
	m.SetBody("text/plain", *body)

	d := gomail.NewDialer(*host, *port, "", "")
	d.SSL = false
	d.Auth = nil

	if err := d.DialAndSend(m); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Email sent successfully")
}
