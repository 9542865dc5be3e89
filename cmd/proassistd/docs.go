package main

// General API documentation for swaggo. Regenerate with `swag init`.
//
// @title           proassistd API
// @version         1.0
// @description     HTTP API for loading local ONNX text models and streaming generation.
//
// @contact.name   proassistd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
