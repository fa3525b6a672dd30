package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultSettings registers default values for all configuration keys.
func setDefaultSettings() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "dalan-go")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.logpath", "logs/api.log")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "dalan.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "dalan")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "dalan")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("detector.modelpath", "model/rdd_yolov8s.onnx")
	viper.SetDefault("detector.configpath", "")
	viper.SetDefault("detector.classespath", "model/classes.txt")
	viper.SetDefault("detector.confidencethreshold", 0.25)
	viper.SetDefault("detector.timeout", 15*time.Second)
	viper.SetDefault("detector.fallbackconfidence", 0.85)

	viper.SetDefault("imagestore.provider", "s3")
	viper.SetDefault("imagestore.placeholderurl",
		"https://placehold.co/400x300/cccccc/666666/png?text=Upload+Failed")
	viper.SetDefault("imagestore.s3.bucket", "dalan-images")
	viper.SetDefault("imagestore.s3.region", "us-east-1")
	viper.SetDefault("imagestore.s3.endpoint", "")
	viper.SetDefault("imagestore.s3.accesskey", "")
	viper.SetDefault("imagestore.s3.secretkey", "")
	viper.SetDefault("imagestore.s3.publicbaseurl", "")

	viper.SetDefault("auth.enabled", true)
	viper.SetDefault("auth.url", "")
	viper.SetDefault("auth.apikey", "")
	viper.SetDefault("auth.cachettl", 5*time.Minute)

	viper.SetDefault("jobqueue.size", 256)
	viper.SetDefault("jobqueue.workers", 1)
}
