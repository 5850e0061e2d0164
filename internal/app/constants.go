package app

// MinPlayersToStartGame defines the minimum number of registered participants required to start a game.
const MinPlayersToStartGame = 1

// MaxBoardArea bounds the board so the full-board read stays cheap.
const MaxBoardArea = 1 << 20
