/*
Package common holds the pieces shared by the dpersist command and the library packages:

  - the logger factory plugged into dragonboat's logger registry, so that every package that
    calls logger.GetLogger (serializer, cache, rsm, cli) prints the same "LEVEL | name | message" lines
  - PersistConfig, the flat configuration the CLI assembles from flags, environment and .env files,
    which converts into serializer options
*/
package common
