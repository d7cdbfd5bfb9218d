package main

import (
	"log"
	"net/http"

	"github.com/caarlos0/env/v11"
	"hawx.me/code/micropub"
)

type config struct {
	Me            string `env:"MICROPUB_ME,required"`
	TokenEndpoint string `env:"MICROPUB_TOKEN_ENDPOINT"`
	UploadDir     string `env:"MICROPUB_UPLOAD_DIR" envDefault:"uploads"`
	MediaDir      string `env:"MICROPUB_MEDIA_DIR" envDefault:"media"`
	Addr          string `env:"MICROPUB_ADDR" envDefault:":8080"`
}

func main() {
	var conf config
	if err := env.Parse(&conf); err != nil {
		log.Fatal(err)
	}

	if conf.TokenEndpoint == "" {
		endpoint, err := micropub.FindTokenEndpoint(nil, conf.Me)
		if err != nil {
			log.Println("using default token endpoint:", err)
		} else {
			conf.TokenEndpoint = endpoint.String()
		}
	}

	http.HandleFunc("/micropub", func(w http.ResponseWriter, r *http.Request) {
		req := micropub.ParseRequest(r, micropub.Config{
			Me:            conf.Me,
			TokenEndpoint: conf.TokenEndpoint,
			UploadDir:     conf.UploadDir,
			MediaDir:      conf.MediaDir,
		})

		if err := req.Err(); err != nil {
			err.WriteResponse(w, r)
			return
		}

		switch req.Action() {
		case micropub.ActionCreate:
			log.Printf("create %s: %v", req.PostType(), req.Content())
			w.Header().Set("Location", conf.Me)
			w.WriteHeader(http.StatusAccepted)

		case micropub.ActionUpdate:
			log.Printf("update %s: %v", req.URL(), req.Updates())
			w.WriteHeader(http.StatusNoContent)

		case micropub.ActionDelete:
			log.Printf("delete %s", req.URL())
			w.WriteHeader(http.StatusNoContent)

		default:
			log.Println("unknown action:", req.Action())
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	log.Fatal(http.ListenAndServe(conf.Addr, nil))
}
